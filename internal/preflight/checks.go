package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"explainer/internal/config"
	"explainer/internal/deps"
	"explainer/internal/profile"
	"explainer/internal/services"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckEncoders verifies ffmpeg can produce the profile's codecs.
func CheckEncoders(ctx context.Context, ffmpegBinary string, prof profile.Profile, run services.OutputRunner) Result {
	const name = "Encoders"
	if err := deps.CheckEncoders(ctx, ffmpegBinary, prof, run); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s, %s", prof.Video.Codec, prof.Audio.Codec)}
}

// CheckPublish reports how uploads will authenticate. It does not contact
// the storage service.
func CheckPublish(cfg config.Publish) Result {
	const name = "Publish"
	if cfg.Bucket == "" {
		return Result{Name: name, Detail: "bucket not configured"}
	}
	source := "AWS default credential chain"
	if cfg.AccessKey != "" {
		source = "static access key"
	}
	target := cfg.Bucket
	if cfg.Endpoint != "" {
		target = fmt.Sprintf("%s at %s", cfg.Bucket, cfg.Endpoint)
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", target, source)}
}
