package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"cybergraph/backend/internal/graph"
	apperrors "cybergraph/backend/pkg/errors"
)

// YtdlpExecutable is the yt-dlp binary used to download subtitles.
var YtdlpExecutable = "yt-dlp"

func init() {
	if path, err := exec.LookPath("yt-dlp"); err == nil {
		YtdlpExecutable = path
	} else if path, err := exec.LookPath("ytdlp"); err == nil {
		YtdlpExecutable = path
	} else if os.Getenv("YTDLP_PATH") != "" {
		YtdlpExecutable = os.Getenv("YTDLP_PATH")
	}
}

// subtitleTracks are tried in order. YouTube exposes machine translations
// into English as the automatic "en" track, so the first pass covers
// manual, auto-generated and translated English captions. The second pass
// takes whatever track the video has.
var subtitleTracks = []struct {
	name  string
	langs string
}{
	{"english", "en.*,en"},
	{"any", "all,-live_chat"},
}

var errNoSubtitles = errors.New("no transcript available")

// ExtractVideoID returns the video id of a youtu.be or watch?v= URL.
func ExtractVideoID(rawURL string) (string, error) {
	var id string
	switch {
	case strings.Contains(rawURL, "youtu.be/"):
		id = strings.SplitN(rawURL, "youtu.be/", 2)[1]
		id = strings.SplitN(id, "?", 2)[0]
	case strings.Contains(rawURL, "v="):
		id = strings.SplitN(rawURL, "v=", 2)[1]
		id = strings.SplitN(id, "&", 2)[0]
	}
	id = strings.Trim(strings.TrimSpace(id), "/")
	if id == "" {
		return "", apperrors.NewInvalidRecord(fmt.Sprintf("no video id in %q", rawURL))
	}
	return id, nil
}

// IngestYouTube downloads the transcript of a video with yt-dlp and builds
// the graph from it. English captions win over any other language.
func (p *Pipeline) IngestYouTube(ctx context.Context, videoURL string) (*Result, error) {
	videoID, err := ExtractVideoID(videoURL)
	if err != nil {
		return nil, err
	}

	transcript, err := p.transcript(ctx, videoID)
	if err != nil {
		return nil, err
	}

	return p.ingestSource(ctx, transcript, graph.Record{
		"entity":      videoID,
		"id":          videoID,
		"source_type": SourceTypeYouTube,
		"url":         videoURL,
		"title":       fmt.Sprintf("YouTube Video %s", videoID),
	})
}

func (p *Pipeline) transcript(ctx context.Context, videoID string) (string, error) {
	var lastErr error
	for _, track := range subtitleTracks {
		text, err := p.downloadSubtitles(ctx, videoID, track.langs)
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			lastErr = err
		}
		p.logger.Debug("No usable subtitles",
			zap.String("video_id", videoID),
			zap.String("track", track.name),
			zap.Error(err),
		)
	}

	if lastErr == nil {
		lastErr = errNoSubtitles
	}
	return "", apperrors.NewSourceFetchFailed("youtube", videoID, lastErr)
}

// downloadSubtitles asks yt-dlp for the VTT subtitles matching langs and
// returns the text of the first file it wrote, English files first.
func (p *Pipeline) downloadSubtitles(ctx context.Context, videoID, langs string) (string, error) {
	dir, err := os.MkdirTemp("", "cybergraph-subs-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	args := []string{
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", langs,
		"--sub-format", "vtt",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		"--",
		"https://www.youtube.com/watch?v=" + videoID,
	}

	cmd := exec.CommandContext(ctx, p.ytdlp, args...)
	if _, err := cmd.Output(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("yt-dlp failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("yt-dlp failed: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.vtt"))
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", errNoSubtitles
	}
	sort.Slice(files, func(i, j int) bool {
		ei, ej := isEnglishSubtitle(files[i]), isEnglishSubtitle(files[j])
		if ei != ej {
			return ei
		}
		return files[i] < files[j]
	})

	body, err := os.ReadFile(files[0])
	if err != nil {
		return "", fmt.Errorf("failed to read subtitles: %w", err)
	}
	return vttText(string(body)), nil
}

// isEnglishSubtitle reports whether a "<id>.<lang>.vtt" file holds English.
func isEnglishSubtitle(path string) bool {
	lang := filepath.Ext(strings.TrimSuffix(filepath.Base(path), ".vtt"))
	return lang == ".en" || strings.HasPrefix(lang, ".en-")
}
