package chat

// NearBottomThreshold is how close to the bottom, in pixels, the viewer must
// be for new arrivals to scroll the list.
const NearBottomThreshold = 100

// Viewport is the scroll geometry last reported by the client.
type Viewport struct {
	ScrollTop    float64 `json:"scroll_top"`
	ScrollHeight float64 `json:"scroll_height"`
	ClientHeight float64 `json:"client_height"`
}

// NearBottom reports whether the viewer is reading the newest messages.
func (v Viewport) NearBottom() bool {
	return v.ScrollHeight-v.ScrollTop-v.ClientHeight <= NearBottomThreshold
}
