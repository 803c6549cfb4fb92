// Terrain preview tool - interactive view of the noise height field used by
// the terrain scene.
//
// Usage: go run ./cmd/terrainpreview -config config.yaml
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/scene"
)

const (
	windowWidth  = 1000
	windowHeight = 620
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
)

// TerrainParams holds the noise settings being edited.
type TerrainParams struct {
	Resolution int
	Frequency  float32
	Octaves    int
	Height     float32
	Seed       int64
}

func fromConfig(cfg *config.Config) TerrainParams {
	t := cfg.Scene.Terrain
	return TerrainParams{
		Resolution: t.Resolution,
		Frequency:  float32(t.Frequency),
		Octaves:    t.Octaves,
		Height:     float32(t.Height),
		Seed:       cfg.Scene.Seed,
	}
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	initial := fromConfig(cfg)
	params := initial

	rl.InitWindow(windowWidth, windowHeight, "Terrain Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	var texture rl.Texture2D
	var heights []float32
	loaded := false
	needsRegen := true

	for !rl.WindowShouldClose() {
		if needsRegen {
			if loaded {
				rl.UnloadTexture(texture)
			}
			heights = scene.Heights(params.Seed, params.Resolution, params.Octaves, float64(params.Frequency))
			img := rl.GenImageColor(params.Resolution, params.Resolution, rl.Black)
			texture = rl.LoadTextureFromImage(img)
			rl.UnloadImage(img)
			updateTexture(texture, heights)
			loaded = true
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: float32(params.Resolution), Height: float32(params.Resolution)},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		var sum float32
		for _, v := range heights {
			sum += v
		}
		rl.DrawText(fmt.Sprintf("Samples: %d  Mean height: %.2f m", len(heights), sum/float32(len(heights))*params.Height),
			15, previewSize+25, 16, rl.DarkGray)

		panelX := float32(previewSize + 20)
		panelY := float32(10)
		rl.DrawText("Terrain Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		slider := func(label string, value, lo, hi float32, format string) float32 {
			rl.DrawText(label, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			nv := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"", "", value, lo, hi,
			)
			rl.DrawText(fmt.Sprintf(format, nv), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			panelY += 35
			if nv != value {
				needsRegen = true
			}
			return nv
		}

		params.Resolution = int(slider("Resolution (samples per side)", float32(params.Resolution), 2, 128, "%.0f"))
		params.Frequency = slider("Frequency", params.Frequency, 0.02, 1, "%.2f")
		params.Octaves = int(slider("Octaves", float32(params.Octaves), 1, 6, "%.0f"))
		params.Height = slider("Height (m)", params.Height, 0.1, 3, "%.2f")
		params.Seed = int64(slider("Seed", float32(params.Seed), 0, 99999, "%.0f"))
		panelY += 10

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
			params.Seed = int64(rl.GetRandomValue(0, 99999))
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = initial
			needsRegen = true
		}
		panelY += 55

		yaml := fmt.Sprintf("scene:\n  seed: %d\n  terrain:\n    resolution: %d\n    frequency: %.2f\n    octaves: %d\n    height: %.2f",
			params.Seed, params.Resolution, params.Frequency, params.Octaves, params.Height)
		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		rl.DrawText(yaml, int32(panelX), int32(panelY)+25, 14, rl.Gray)
		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), windowHeight-30, 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(yaml)
		}

		rl.EndDrawing()
	}
	if loaded {
		rl.UnloadTexture(texture)
	}
}

// updateTexture colours heights from deep green through brown to white.
func updateTexture(texture rl.Texture2D, heights []float32) {
	pixels := make([]color.RGBA, len(heights))
	for i, v := range heights {
		var r, g, b uint8
		switch {
		case v < 0.4:
			t := v / 0.4
			r, g, b = uint8(30+t*40), uint8(80+t*60), uint8(40+t*20)
		case v < 0.75:
			t := (v - 0.4) / 0.35
			r, g, b = uint8(70+t*70), uint8(140-t*50), uint8(60-t*20)
		default:
			t := (v - 0.75) / 0.25
			r, g, b = uint8(140+t*115), uint8(90+t*165), uint8(40+t*215)
		}
		pixels[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	rl.UpdateTexture(texture, pixels)
}
