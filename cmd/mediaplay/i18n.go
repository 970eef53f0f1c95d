// Package main provides localization for the mediaplay CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Output": "出力先",
		"Video":  "映像",
		"Audio":  "音声",

		// Root command
		"Play and decode MP4 and MPEG-TS media.": "MP4 と MPEG-TS のメディアを再生・デコード",
		"YAML configuration file.":               "YAML 設定ファイル。",
		"Log level (debug, info, warn, error).":  "ログレベル (debug, info, warn, error)。",
		"Suppress all log output.":               "ログ出力をすべて抑制します。",
		"Path to the ffmpeg binary.":             "ffmpeg バイナリのパス。",

		// Play command
		"Play a media file. Type p, s <sec>, x <speed>, i or q on stdin.": "メディアファイルを再生します。標準入力で p, s <秒>, x <速度>, i, q を入力できます。",
		"Initial playback speed.":                          "初期再生速度。",
		"Video renderer (snapshot, rawfile, null).":        "映像レンダラー (snapshot, rawfile, null)。",
		"Directory for PNG snapshots.":                     "PNG スナップショットの保存先ディレクトリ。",
		"Save one snapshot per this many frames.":          "このフレーム数ごとにスナップショットを 1 枚保存します。",
		"Do not draw frame number and time on snapshots.":  "スナップショットにフレーム番号と時刻を描画しません。",
		"Raw RGBA output file for the rawfile renderer.":   "rawfile レンダラーの RGBA 出力ファイル。",
		"Presentation width (0 = stream size).":            "表示幅 (0 = ストリームのサイズ)。",
		"Presentation height (0 = stream size).":           "表示高さ (0 = ストリームのサイズ)。",
		"Audio output (oto, pcmfile, null).":               "音声出力 (oto, pcmfile, null)。",
		"Raw PCM output file for the pcmfile output.":      "pcmfile 出力の PCM 出力ファイル。",
		"Play video only.":                                 "映像のみ再生します。",
		"%s  %.3f / %.3f s (%.0f%%)  speed %.2fx":          "%s  %.3f / %.3f 秒 (%.0f%%)  速度 %.2f 倍",
		"unknown command %q":                               "不明なコマンドです: %q",
		"%s needs one numeric argument":                    "%s には数値の引数が 1 つ必要です",

		// Decode command
		"Decode a media file to raw RGBA frames and raw PCM as fast as possible.": "メディアファイルを RGBA フレームと PCM に全速でデコードします。",
		"Raw RGBA output file.":                          "RGBA 出力ファイル。",
		"Raw S16LE PCM output file (omit to skip audio).": "S16LE PCM 出力ファイル (省略すると音声を出力しません)。",
		"Output width (0 = stream size).":                "出力幅 (0 = ストリームのサイズ)。",
		"Output height (0 = stream size).":               "出力高さ (0 = ストリームのサイズ)。",
		"Output sample rate (0 = source rate).":          "出力サンプルレート (0 = 元のレート)。",
		"Output channels (0 = source channels).":         "出力チャンネル数 (0 = 元のチャンネル数)。",

		"Write a Markdown summary of the session to this file.": "セッションの Markdown サマリーをこのファイルに書き込みます。",

		// Probe command
		"Print the streams of a media file.": "メディアファイルのストリームを表示します。",
		"Input: %s":                          "入力: %s",
		"  #%d %s %s %dx%d %.3f fps":         "  #%d %s %s %dx%d %.3f fps",
		"  #%d %s %s %d Hz %d channels":      "  #%d %s %s %d Hz %d チャンネル",

		// Results
		"Video: %s %dx%d %.3f fps":       "映像: %s %dx%d %.3f fps",
		"Audio: %s %d Hz %d channels":    "音声: %s %d Hz %d チャンネル",
		"Duration: %.3f s":               "長さ: %.3f 秒",
		"Playback %s: %d frames presented, %d dropped, %d decode errors, %d PCM bytes": "再生 %s: %d フレーム表示, %d 破棄, デコードエラー %d, PCM %d バイト",

		// Version command
		"Show version information.":  "バージョン情報を表示します。",
		"mediaplay (Go) version %s": "mediaplay (Go) バージョン %s",

		// Errors
		"Exactly one input file is required.": "入力ファイルを 1 つだけ指定してください。",
		"Error: %v":                           "エラー: %v",
	})
}
