package framesource

// PlaceholderPixels generates the static fallback image shown on
// monitors with no playable video: a soft diagonal gradient with a faint
// checker overlay, RGBA, alpha fully opaque.
func PlaceholderPixels(width, height int) []byte {
	pixels := make([]byte, FrameSize(width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			fx := float64(x) / float64(width)
			fy := float64(y) / float64(height)
			stripe := float64(((x / 32) + (y / 32)) % 2)
			pixels[i] = byte(30.0 + 150.0*fx + 40.0*stripe)
			pixels[i+1] = byte(40.0 + 170.0*fy)
			pixels[i+2] = byte(80.0 + 100.0*(1.0-fx) + 35.0*stripe)
			pixels[i+3] = 255
		}
	}
	return pixels
}
