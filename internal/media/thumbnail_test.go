package media

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGenerateFirstOffset(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "thumb.jpg")

	runner := &mockRunner{}
	runner.On("Run", mock.Anything, "ffmpeg",
		[]string{"-y", "-ss", "00:00:05", "-i", "/media/a.mp4", "-vframes", "1", "-vf", "scale=480:-1", dst}).
		Run(writeFrame).Return([]byte(nil), []byte(nil), nil).Once()

	got, err := NewThumbnailGenerator(runner, "", time.Second).Generate(context.Background(), "/media/a.mp4", dst)
	require.NoError(t, err)
	assert.Equal(t, dst, got)
	runner.AssertExpectations(t)
	runner.AssertNumberOfCalls(t, "Run", 1)
}

func TestGenerateFallsBackToOneSecond(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "thumb.jpg")

	runner := &mockRunner{}
	runner.On("Run", mock.Anything, "ffmpeg", argsWithSeek("00:00:05")).
		Return([]byte(nil), []byte("Output file is empty"), errors.New("exit status 1")).Once()
	runner.On("Run", mock.Anything, "ffmpeg", argsWithSeek("00:00:01")).
		Run(writeFrame).Return([]byte(nil), []byte(nil), nil).Once()

	got, err := NewThumbnailGenerator(runner, "ffmpeg", time.Second).Generate(context.Background(), "/media/short.mp4", dst)
	require.NoError(t, err)
	assert.Equal(t, dst, got)

	img, err := imaging.Open(dst)
	require.NoError(t, err)
	assert.Equal(t, ThumbnailWidth, img.Bounds().Dx())
	runner.AssertExpectations(t)
}

func TestGenerateZeroExitWithoutFrameFallsBack(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "thumb.jpg")

	runner := &mockRunner{}
	runner.On("Run", mock.Anything, "ffmpeg", argsWithSeek("00:00:05")).
		Run(writeGarbage).Return([]byte(nil), []byte(nil), nil).Once()
	runner.On("Run", mock.Anything, "ffmpeg", argsWithSeek("00:00:01")).
		Run(writeFrame).Return([]byte(nil), []byte(nil), nil).Once()

	_, err := NewThumbnailGenerator(runner, "ffmpeg", time.Second).Generate(context.Background(), "/media/short.mp4", dst)
	require.NoError(t, err)
	runner.AssertExpectations(t)
}

func TestGenerateBothAttemptsFail(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "thumb.jpg")

	runner := &mockRunner{}
	runner.On("Run", mock.Anything, "ffmpeg", argsWithSeek("00:00:05")).
		Run(writeGarbage).Return([]byte(nil), []byte(nil), errors.New("exit status 1")).Once()
	runner.On("Run", mock.Anything, "ffmpeg", argsWithSeek("00:00:01")).
		Return([]byte(nil), []byte("Invalid data found when processing input"), errors.New("exit status 1")).Once()

	got, err := NewThumbnailGenerator(runner, "ffmpeg", time.Second).Generate(context.Background(), "/media/broken.mp4", dst)
	require.ErrorIs(t, err, ErrThumbnailGenerationFailed)
	assert.Empty(t, got)
	assert.Contains(t, err.Error(), "Invalid data found")

	_, statErr := os.Stat(dst)
	assert.ErrorIs(t, statErr, os.ErrNotExist, "partial output must be removed")
	runner.AssertExpectations(t)
}

func TestGenerateCancelledSkipsRetry(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "thumb.jpg")
	ctx, cancel := context.WithCancel(context.Background())

	runner := &mockRunner{}
	runner.On("Run", mock.Anything, "ffmpeg", argsWithSeek("00:00:05")).
		Run(func(mock.Arguments) { cancel() }).
		Return([]byte(nil), []byte(nil), context.Canceled).Once()

	_, err := NewThumbnailGenerator(runner, "ffmpeg", time.Second).Generate(ctx, "/media/a.mp4", dst)
	require.ErrorIs(t, err, ErrThumbnailGenerationFailed)
	runner.AssertNumberOfCalls(t, "Run", 1)
}

func TestThumbnailName(t *testing.T) {
	a := ThumbnailName("/media/Cooking/My Pasta (2020).mp4")
	b := ThumbnailName("/media/Other/My Pasta (2020).mp4")

	assert.NotEqual(t, a, b, "same base name must still produce distinct thumbnails")
	assert.True(t, strings.HasSuffix(a, "_My_Pasta_2020.jpg"), a)
	assert.NotContains(t, a, "/")
}

func TestGenerateWithFFmpeg(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available, skipping integration test")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "two-seconds.mp4")
	out, err := exec.Command("ffmpeg", "-y", "-f", "lavfi", "-i", "testsrc=duration=2:size=640x360:rate=10",
		"-pix_fmt", "yuv420p", src).CombinedOutput()
	require.NoError(t, err, string(out))

	dst := filepath.Join(dir, "thumb.jpg")
	_, err = NewThumbnailGenerator(ExecRunner{}, "ffmpeg", 30*time.Second).Generate(context.Background(), src, dst)
	require.NoError(t, err, "short clip must succeed via the 1s offset")

	img, err := imaging.Open(dst)
	require.NoError(t, err)
	assert.Equal(t, 480, img.Bounds().Dx())
	assert.Equal(t, 270, img.Bounds().Dy())
}
