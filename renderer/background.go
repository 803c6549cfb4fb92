package renderer

import rl "github.com/gen2brain/raylib-go/raylib"

// Background renders a vertical gradient behind the scene.
type Background struct {
	top, bottom rl.Color
}

// NewBackground creates a background fading from top to bottom.
func NewBackground(top, bottom rl.Color) *Background {
	return &Background{top: top, bottom: bottom}
}

// Draw fills the screen.
func (b *Background) Draw(width, height int32) {
	rl.DrawRectangleGradientV(0, 0, width, height, b.top, b.bottom)
}
