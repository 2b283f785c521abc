package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ivlev/composer/internal/composition"
)

// loadProps reads a prop bag given on the command line: the path of an
// existing JSON/YAML file, or else an inline JSON object.
func loadProps(arg string) (composition.Props, error) {
	if info, err := os.Stat(arg); err != nil || info.IsDir() {
		p, err := composition.ParseProps([]byte(strings.TrimSpace(arg)))
		if err != nil {
			return nil, fmt.Errorf("props %q is not an existing file or an inline object: %w", arg, err)
		}
		return p, nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to read props: %w", err)
	}
	p, err := composition.ParseProps(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", arg, err)
	}
	return p, nil
}

// presetSize maps an aspect preset to a frame size, keeping the fallback
// for an empty preset.
func presetSize(preset string, width, height int) (int, int, error) {
	switch preset {
	case "":
		return width, height, nil
	case "16:9":
		return 1280, 720, nil
	case "9:16":
		return 720, 1280, nil
	case "4:5":
		return 1080, 1350, nil
	case "1:1":
		return 1080, 1080, nil
	default:
		return 0, 0, fmt.Errorf("unknown preset %q", preset)
	}
}

func describe(d composition.Descriptor) string {
	return fmt.Sprintf("%s: %dx%d @ %g fps, %d frames (%.2fs), %d default props, %d props",
		d.ID(), d.Width(), d.Height(), d.FPS(), d.DurationInFrames(), d.DurationSeconds(),
		len(d.DefaultProps()), len(d.Props()))
}
