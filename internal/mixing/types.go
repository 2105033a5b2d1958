// Package mixing implements multi-source frame compositing: a set of named
// RTMP/file inputs, each placed at a fixed (x, y, width, height, z_index),
// is decoded, scaled, and blitted onto a persistent background frame on a
// fixed 30fps clock, then encoded and published as a single RTMP output.
package mixing

// Stream describes one input's identity and placement within the composite
// frame. Identity is ID; every other field may change across an Update.
type Stream struct {
	ID     string
	URL    string
	Width  int
	Height int
	X      int
	Y      int
	ZIndex int
}

// samePlacement reports whether two Streams differ only in identity/URL,
// i.e. whether their on-screen placement is unchanged.
func samePlacement(a, b Stream) bool {
	return a.Width == b.Width && a.Height == b.Height &&
		a.X == b.X && a.Y == b.Y && a.ZIndex == b.ZIndex
}

// Params is the full configuration of a mix task, carried in both the
// initial "start" request and every subsequent "update".
type Params struct {
	OutputURL       string
	Width           int
	Height          int
	BackgroundImage string
	Streams         []Stream
}
