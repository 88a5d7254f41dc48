package testsupport

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// The fake media binaries stand in for ffmpeg and ffprobe. Every "media" file
// they touch is a text file containing its duration in seconds:
//
//   - ffprobe prints a 1280x720/30fps h264 + 48kHz stereo aac description
//     whose duration is the file's content, failing on anything else.
//   - ffmpeg writes the value of -t into its output; in concat mode it writes
//     the sum of the listed files' durations.
const fakeFFmpeg = `out=""; dur=""; list=""; prev=""; concat=0
for arg in "$@"; do
  case "$prev" in
    -t) dur="$arg" ;;
    -f) [ "$arg" = concat ] && concat=1 ;;
    -i) [ "$concat" = 1 ] && list="$arg" ;;
  esac
  prev="$arg"; out="$arg"
done
if [ -n "$FAKE_FFMPEG_FAIL" ]; then
  echo "simulated encoder failure" >&2
  exit 1
fi
if [ -n "$list" ]; then
  dur=$(sed -n "s/^file '\(.*\)'$/\1/p" "$list" | while read -r f; do cat "$f"; echo; done | awk '{s += $1} END {printf "%.6f", s}')
fi
printf '%s' "$dur" > "$out"
`

const fakeFFprobe = `for arg in "$@"; do path="$arg"; done
dur=$(cat "$path" 2>/dev/null)
case "$dur" in
  ''|*[!0-9.]*) echo "$path: Invalid data found when processing input" >&2; exit 1 ;;
esac
size=$(wc -c < "$path" | tr -d ' ')
cat <<JSON
{"streams":[
 {"index":0,"codec_type":"video","codec_name":"h264","profile":"High","width":1280,"height":720,"pix_fmt":"yuv420p","sample_aspect_ratio":"1:1","r_frame_rate":"30/1","avg_frame_rate":"30/1"},
 {"index":1,"codec_type":"audio","codec_name":"aac","sample_rate":"48000","channels":2,"channel_layout":"stereo","duration":"$dur"}
],"format":{"filename":"$path","nb_streams":2,"duration":"$dur","size":"$size","format_name":"mov,mp4,m4a,3gp,3g2,mj2"}}
JSON
`

// WriteFakeMedia installs fake ffmpeg and ffprobe scripts in dir and returns
// their paths. Setting FAKE_FFMPEG_FAIL makes ffmpeg exit non-zero.
func WriteFakeMedia(t testing.TB, dir string) (string, string) {
	t.Helper()
	ffmpeg := filepath.Join(dir, "ffmpeg")
	ffprobe := filepath.Join(dir, "ffprobe")
	WriteScript(t, ffmpeg, fakeFFmpeg)
	WriteScript(t, ffprobe, fakeFFprobe)
	return ffmpeg, ffprobe
}

// WriteFakeAudio writes a narration stand-in understood by the fake ffprobe.
func WriteFakeAudio(t testing.TB, path string, seconds float64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strconv.FormatFloat(seconds, 'f', -1, 64)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
