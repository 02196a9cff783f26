package alarm

// Notification is the displayable descriptor posted when an alarm fires.
type Notification struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Icon     string            `json:"icon,omitempty"`
	Color    string            `json:"color,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	ImageURL string            `json:"image_url,omitempty"`
	Image    []byte            `json:"image,omitempty"`
	DeepLink string            `json:"deep_link,omitempty"`
	Channel  string            `json:"channel,omitempty"`
	Actions  []Action          `json:"actions,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// HasImage reports whether image bytes were downloaded.
func (n *Notification) HasImage() bool {
	return len(n.Image) > 0
}
