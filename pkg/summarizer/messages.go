package summarizer

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		"File: %s": "ファイル: %s",
		"Video: %s %dx%d, timescale %d, decoder %s":        "映像: %s %dx%d, タイムスケール %d, デコーダ %s",
		"Audio: %s %d Hz, %d channels, %d-bit, decoder %s": "音声: %s %d Hz, %d チャンネル, %d ビット, デコーダ %s",
		"  %d frames, %.3fs to %.3fs, %.2f fps":            "  %d フレーム, %.3f秒 から %.3f秒, %.2f fps",
		"Duration: %.3fs":                                  "長さ: %.3f秒",
		"Played %.3fs to %.3fs, %d frames presented":       "%.3f秒 から %.3f秒 まで再生し、%d フレームを表示しました",
	})
}
