package render

import (
	"fmt"
	"os"
	"strings"

	"lapse/internal/tokens"
)

var formatExtensions = map[string]string{
	"avi":  "avi",
	"flv":  "flv",
	"h264": "mp4",
	"vob":  "vob",
	"mp4":  "mp4",
	"mpeg": "mpeg",
	"gif":  "gif",
}

var formatCodecs = map[string]string{
	"avi":  "mpeg4",
	"flv":  "flv1",
	"gif":  "gif",
	"h264": "h264",
	"mp4":  "mpeg4",
	"mpeg": "mpeg2video",
	"vob":  "mpeg2video",
}

// ExtensionForFormat maps an output container format to a file extension,
// defaulting to mp4.
func ExtensionForFormat(format string) string {
	if ext, ok := formatExtensions[strings.ToLower(strings.TrimSpace(format))]; ok {
		return ext
	}
	return "mp4"
}

// CodecForFormat maps an output container format to an ffmpeg video codec,
// defaulting to mpeg2video.
func CodecForFormat(format string) string {
	if codec, ok := formatCodecs[strings.ToLower(strings.TrimSpace(format))]; ok {
		return codec
	}
	return "mpeg2video"
}

// outputPlan is where a render writes and, optionally, where the result is
// moved afterwards. Directories end with a path separator.
type outputPlan struct {
	Directory     string
	Filename      string
	Extension     string
	SyncDirectory string
	SyncFilename  string
}

func (o outputPlan) Path() string {
	return o.Directory + o.Filename + "." + o.Extension
}

func (o outputPlan) SyncPath() string {
	return o.SyncDirectory + o.SyncFilename + "." + o.Extension
}

// planOutputs expands the filename template and resolves collisions in the
// render and sync directories independently, both starting from the same
// expanded name.
func planOutputs(template string, values OutputTokens, outputDir, syncDir, format string) (outputPlan, error) {
	name, err := tokens.Expand(template, values.Values())
	if err != nil {
		return outputPlan{}, newError(KindOutputTemplate, "Failed to format the rendering output template: "+templateErrorMessage(err), err)
	}
	if !validFileName(name) {
		return outputPlan{}, newError(KindOutputTemplate, fmt.Sprintf("The rendering output template produced an invalid filename %q", name), nil)
	}

	plan := outputPlan{
		Directory: withTrailingSeparator(outputDir),
		Extension: ExtensionForFormat(format),
	}
	plan.Filename = freeName(plan.Directory, name, plan.Extension)
	if strings.TrimSpace(syncDir) != "" {
		plan.SyncDirectory = withTrailingSeparator(syncDir)
		plan.SyncFilename = freeName(plan.SyncDirectory, name, plan.Extension)
	}
	return plan, nil
}

// freeName appends _1, _2, ... to base until dir+name.ext is not an
// existing file.
func freeName(dir, base, ext string) string {
	name := base
	for n := 1; isFile(dir + name + "." + ext); n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	return name
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func withTrailingSeparator(dir string) string {
	if dir == "" || os.IsPathSeparator(dir[len(dir)-1]) {
		return dir
	}
	return dir + string(os.PathSeparator)
}
