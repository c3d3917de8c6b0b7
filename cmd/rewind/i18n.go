// Package main provides localization for the rewind CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Play MP4 files with audio/video sync and instant seeking": "音声と映像を同期させ、即座にシークできるMP4プレイヤー",
		"Config file (default: user config directory)":              "設定ファイル（既定: ユーザー設定ディレクトリ）",
		"Log level (debug, info, warn, error)":                      "ログレベル (debug, info, warn, error)",
		"Suppress all log output":                                   "ログ出力をすべて抑制",
		"Error: %s":                                                 "エラー: %s",

		// Play command
		"Play a file headlessly, pacing frames against the wall clock": "実時間に合わせてファイルをヘッドレス再生",
		"Seek to this position in seconds before playing":              "再生前にこの位置（秒）へシーク",
		"Stop after this much wall time (default: play to the end)":    "この時間が経過したら停止（既定: 最後まで再生）",
		"Ignore the saved position":                                    "保存された再生位置を無視",
		"Progress log interval (0 disables)":                           "進捗ログの間隔（0で無効）",
		"Resuming %s at %.2fs":                                         "%s を %.2f秒 から再開します",
		"Playing %.2fs / %.2fs (%.1f%%), drift %.3fs":                  "再生中 %.2f秒 / %.2f秒 (%.1f%%), ずれ %.3f秒",
		"Presented %d frames, stopped at %.2fs":                        "%d フレームを表示し、%.2f秒 で停止しました",
		"Could not read saved position: %s":                            "保存された再生位置を読み込めませんでした: %s",
		"Could not save position: %s":                                  "再生位置を保存できませんでした: %s",
		"Index cache unavailable: %s":                                  "インデックスキャッシュを利用できません: %s",
		"expected exactly one FILE argument, got %d":                   "FILE 引数はちょうど1つ必要です（%d 個指定されました）",

		// Probe command
		"Show stream information and timeline of a file":  "ファイルのストリーム情報とタイムラインを表示",
		"Also write a Markdown report to this path":          "Markdownレポートもこのパスに書き込む",
		"Write a Markdown report of the session to this path": "再生セッションのMarkdownレポートをこのパスに書き込む",
		"Report written to %s":                                 "レポートを %s に書き込みました",

		// Index command
		"Build the timeline cache for one or more files": "1つ以上のファイルのタイムラインキャッシュを作成",
		"Rebuild entries that are already cached":        "キャッシュ済みのエントリも再作成",
		"Number of files indexed in parallel":            "並列にインデックス化するファイル数",
		"Already indexed: %s":                            "インデックス作成済み: %s",
		"Indexed %s: %d video, %d audio frames in %d ms": "%s をインデックス化: 映像 %d, 音声 %d フレーム (%d ms)",
		"no files given":                                 "ファイルが指定されていません",
		"index cache is disabled in the configuration":   "設定でインデックスキャッシュが無効になっています",
		"index cache could not be opened":                "インデックスキャッシュを開けませんでした",
		"%d of %d files failed":                          "%d / %d ファイルが失敗しました",

		// Config command
		"Print the effective configuration as YAML": "有効な設定をYAMLで表示",
		"Write the configuration to this path instead of printing it (read by default from %s)": "表示する代わりにこのパスへ設定を書き込む（既定の読み込み先: %s）",
		"Configuration written to %s": "設定を %s に書き込みました",

		// Version command
		"Show version information": "バージョン情報を表示",
		"rewind version %s":        "rewind バージョン %s",
	})
}
