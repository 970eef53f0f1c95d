package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session level messages (info)
		"Opening %s":                           "%s を開いています",
		"Playing %s (%dx%d %s, %.3f fps)":      "%s を再生中 (%dx%d %s, %.3f fps)",
		"Audio stream: %s, %d Hz, %d channels": "音声ストリーム: %s, %d Hz, %d チャンネル",
		"No audio stream":                      "音声ストリームがありません",
		"Audio output disabled":                "音声出力は無効です",
		"Paused":                               "一時停止しました",
		"Resumed":                              "再開しました",
		"Playback speed set to %.2fx":          "再生速度を %.2f 倍に設定しました",
		"Seeking to %.3f s":                    "%.3f 秒へシーク中",
		"Stopping playback":                    "再生を停止しています",
		"Playback finished":                    "再生が終了しました",
		"Interrupted, shutting down...":        "中断されました。シャットダウン中...",
		"Video output: %s":                     "映像出力: %s",
		"Report written to %s":                 "レポートを %s に書き込みました",

		// Demux stage
		"Demux started":                                 "デマルチプレクスを開始しました",
		"End of input after %d units":                   "%d ユニットで入力が終了しました",
		"Seeked to %.3f s (epoch %d, %d units dropped)": "%.3f 秒へシークしました (エポック %d, %d ユニット破棄)",

		// Video stage
		"Renderer initialized: %dx%d":               "レンダラーを初期化しました: %dx%d",
		"Video stage finished: %d frames presented": "映像ステージ終了: %d フレーム表示",
		"Decoder flushed":                           "デコーダーをフラッシュしました",

		// Audio stage
		"Audio stage finished: %d bytes of PCM": "音声ステージ終了: PCM %d バイト",

		// Adapters
		"Using ffmpeg at %s":                     "ffmpeg を使用します: %s",
		"Saved %d snapshots of %d frames to %s":  "%d 枚のスナップショットを保存しました (全 %d フレーム, 保存先 %s)",
		"Writing %dx%d RGBA frames to %s":        "%dx%d の RGBA フレームを %s に書き込んでいます",
		"Wrote %d frames (%d bytes)":             "%d フレームを書き込みました (%d バイト)",
		"Writing %d Hz %d ch S16LE to %s":        "%d Hz %d ch の S16LE を %s に書き込んでいます",
		"Wrote %d bytes of PCM":                  "PCM を %d バイト書き込みました",
		"Audio device started: %d Hz %d ch":      "オーディオデバイスを開始しました: %d Hz %d ch",

		// Warnings
		"Failed to decode unit at %.3f s: %s":   "%.3f 秒のユニットのデコードに失敗しました: %s",
		"Failed to present frame at %.3f s: %s": "%.3f 秒のフレームの表示に失敗しました: %s",
		"Failed to drain decoder: %s":           "デコーダーの排出に失敗しました: %s",
		"Failed to resample audio: %s":          "音声のリサンプリングに失敗しました: %s",
		"Failed to load font %s: %s":            "フォント %s の読み込みに失敗しました: %s",
		"Failed to write PCM: %s":               "PCM の書き込みに失敗しました: %s",
		"Audio device error: %s":                "オーディオデバイスのエラー: %s",
		"Failed to write report: %s":            "レポートの書き込みに失敗しました: %s",
		"Read failed: %s":                       "読み込みに失敗しました: %s",
		"Seek failed: %s":                       "シークに失敗しました: %s",
		"Failed to close %s: %s":                "%s のクローズに失敗しました: %s",

		// Errors
		"Failed to open %s: %s": "%s を開けませんでした: %s",
		"Playback failed: %s":   "再生に失敗しました: %s",
	})
}
