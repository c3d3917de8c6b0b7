package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Loading (engine component)
		"Loaded %s: %d video frames, %d audio frames, %.2fs": "%s を読み込みました: 映像 %d フレーム, 音声 %d フレーム, %.2f秒",
		"Indexing %s": "%s のインデックスを作成中",
		"Indexed %d video and %d audio frames in %d ms": "映像 %d フレームと音声 %d フレームを %d ms でインデックス化しました",
		"Index cache hit for %s":                         "%s のインデックスキャッシュを使用します",

		// Playback
		"Seeked to %.3f, first frame %.3f":   "%.3f へシークしました (先頭フレーム %.3f)",
		"Window exhausted, refilling at %.3f": "キャッシュ窓を使い切りました。%.3f から再充填します",
		"End of stream at %.3fs, paused":      "%.3f秒でストリーム終端に達したため一時停止しました",

		// Synchronization
		"Drift %.3fs, resyncing at %.3f":                       "ずれ %.3f秒, %.3f で再同期します",
		"Drift %.3fs kept, correction would not move video":    "ずれ %.3f秒 を維持 (補正しても映像位置が変わりません)",
		"Drift %.3fs kept, audio at end of stream":             "ずれ %.3f秒 を維持 (音声がストリーム終端です)",

		// Decoder selection (smartdecoder component)
		"Selected %s track %d: %s via %s": "%s トラック %d を選択: %s (%s)",
		"Skipping %s track %d (%s): %s":   "%s トラック %d (%s) をスキップ: %s",

		// Shutdown
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",

		// Warnings
		"Index cache read failed: %s":          "インデックスキャッシュの読み込みに失敗しました: %s",
		"Index cache write failed: %s":         "インデックスキャッシュの書き込みに失敗しました: %s",
		"Index cache entry for %s ignored: %s": "%s のインデックスキャッシュを無視しました: %s",
		"Sync correction at %.3f failed: %s":   "%.3f での同期補正に失敗しました: %s",

		// Errors
		"Failed to open %s: %s":                "%s を開けませんでした: %s",
		"Failed to index %s: %s":               "%s のインデックス作成に失敗しました: %s",
		"Failed to decode first frames of %s: %s": "%s の先頭フレームのデコードに失敗しました: %s",
		"Seek to %.3f failed: %s":              "%.3f へのシークに失敗しました: %s",
		"Refill at %.3f failed: %s":            "%.3f での再充填に失敗しました: %s",
	})
}
