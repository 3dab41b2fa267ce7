package target

// ListenerOptions configures console capture for one session. Nil and empty
// fields mean "not set" so overrides only replace what they name.
type ListenerOptions struct {
	ExcludeMessagesBoundToWindow *bool  `json:"excludeMessagesBoundToWindow,omitempty" yaml:"exclude_messages_bound_to_window"`
	MatchAddonID                 string `json:"matchAddonId,omitempty" yaml:"match_addon_id"`
}

// Merge returns o with every field set in override replacing the value in o.
func (o ListenerOptions) Merge(override ListenerOptions) ListenerOptions {
	merged := o
	if override.ExcludeMessagesBoundToWindow != nil {
		v := *override.ExcludeMessagesBoundToWindow
		merged.ExcludeMessagesBoundToWindow = &v
	}
	if override.MatchAddonID != "" {
		merged.MatchAddonID = override.MatchAddonID
	}
	return merged
}

// ExcludeBoundToWindow resolves the tri-state flag to a plain bool.
func (o ListenerOptions) ExcludeBoundToWindow() bool {
	return o.ExcludeMessagesBoundToWindow != nil && *o.ExcludeMessagesBoundToWindow
}

// IsZero reports whether no option is set.
func (o ListenerOptions) IsZero() bool {
	return o.ExcludeMessagesBoundToWindow == nil && o.MatchAddonID == ""
}

// Bool returns a pointer to b for building option literals.
func Bool(b bool) *bool {
	return &b
}
