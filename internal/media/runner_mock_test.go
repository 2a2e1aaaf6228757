package media

import (
	"context"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/mock"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	called := m.Called(ctx, name, args)
	stdout, _ := called.Get(0).([]byte)
	stderr, _ := called.Get(1).([]byte)
	return stdout, stderr, called.Error(2)
}

// argsWithSeek matches an ffmpeg argument list seeking to offset.
func argsWithSeek(offset string) any {
	return mock.MatchedBy(func(args []string) bool {
		for i := 0; i+1 < len(args); i++ {
			if args[i] == "-ss" && args[i+1] == offset {
				return true
			}
		}
		return false
	})
}

// writeFrame simulates ffmpeg writing a JPEG to its last argument.
func writeFrame(args mock.Arguments) {
	argv := args.Get(2).([]string)
	img := imaging.New(480, 270, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	if err := imaging.Save(img, argv[len(argv)-1]); err != nil {
		panic(err)
	}
}

// writeGarbage simulates ffmpeg exiting zero without a usable frame.
func writeGarbage(args mock.Arguments) {
	argv := args.Get(2).([]string)
	if err := os.WriteFile(argv[len(argv)-1], []byte("not a jpeg"), 0o644); err != nil {
		panic(err)
	}
}
