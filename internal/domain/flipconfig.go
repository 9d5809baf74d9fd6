package domain

import (
	"errors"
	"strings"
)

// FlipConfig holds the viewer display settings. Every field has a default;
// updates arrive as a FlipConfigPatch and are merged with MergeFlipConfig.
type FlipConfig struct {
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	FlipAnimation    string  `json:"flipAnimation"`
	FlipSpeed        int     `json:"flipSpeed"`
	ShowShadow       bool    `json:"showShadow"`
	ShadowOpacity    float64 `json:"shadowOpacity"`
	PageLayout       string  `json:"pageLayout"`
	BackgroundColor  string  `json:"backgroundColor"`
	ShowPageNumbers  bool    `json:"showPageNumbers"`
	NavigationStyle  string  `json:"navigationStyle"`
	AutoPlay         bool    `json:"autoPlay"`
	AutoPlayInterval int     `json:"autoPlayInterval"`
}

func DefaultFlipConfig() FlipConfig {
	return FlipConfig{
		Width:            400,
		Height:           500,
		FlipAnimation:    "soft",
		FlipSpeed:        1000,
		ShowShadow:       true,
		ShadowOpacity:    0.3,
		PageLayout:       "double",
		BackgroundColor:  "#1a1a2e",
		ShowPageNumbers:  true,
		NavigationStyle:  "both",
		AutoPlay:         false,
		AutoPlayInterval: 3000,
	}
}

// FlipConfigPatch is a partial config update; nil fields are left unchanged.
type FlipConfigPatch struct {
	Width            *int     `json:"width"`
	Height           *int     `json:"height"`
	FlipAnimation    *string  `json:"flipAnimation"`
	FlipSpeed        *int     `json:"flipSpeed"`
	ShowShadow       *bool    `json:"showShadow"`
	ShadowOpacity    *float64 `json:"shadowOpacity"`
	PageLayout       *string  `json:"pageLayout"`
	BackgroundColor  *string  `json:"backgroundColor"`
	ShowPageNumbers  *bool    `json:"showPageNumbers"`
	NavigationStyle  *string  `json:"navigationStyle"`
	AutoPlay         *bool    `json:"autoPlay"`
	AutoPlayInterval *int     `json:"autoPlayInterval"`
}

// MergeFlipConfig returns cur with the non-nil fields of p applied.
func MergeFlipConfig(cur FlipConfig, p FlipConfigPatch) FlipConfig {
	if p.Width != nil {
		cur.Width = *p.Width
	}
	if p.Height != nil {
		cur.Height = *p.Height
	}
	if p.FlipAnimation != nil {
		cur.FlipAnimation = *p.FlipAnimation
	}
	if p.FlipSpeed != nil {
		cur.FlipSpeed = *p.FlipSpeed
	}
	if p.ShowShadow != nil {
		cur.ShowShadow = *p.ShowShadow
	}
	if p.ShadowOpacity != nil {
		cur.ShadowOpacity = *p.ShadowOpacity
	}
	if p.PageLayout != nil {
		cur.PageLayout = *p.PageLayout
	}
	if p.BackgroundColor != nil {
		cur.BackgroundColor = *p.BackgroundColor
	}
	if p.ShowPageNumbers != nil {
		cur.ShowPageNumbers = *p.ShowPageNumbers
	}
	if p.NavigationStyle != nil {
		cur.NavigationStyle = *p.NavigationStyle
	}
	if p.AutoPlay != nil {
		cur.AutoPlay = *p.AutoPlay
	}
	if p.AutoPlayInterval != nil {
		cur.AutoPlayInterval = *p.AutoPlayInterval
	}
	return cur
}

// Validate checks the enumerated and numeric fields, joining all messages
// into a single error so the API can report every problem at once.
func (c FlipConfig) Validate() error {
	var msgs []string
	switch c.FlipAnimation {
	case "hard", "soft", "fade", "vertical":
	default:
		msgs = append(msgs, "flipAnimation must be one of hard, soft, fade, vertical")
	}
	switch c.PageLayout {
	case "single", "double":
	default:
		msgs = append(msgs, "pageLayout must be single or double")
	}
	switch c.NavigationStyle {
	case "arrows", "thumbnails", "both", "none":
	default:
		msgs = append(msgs, "navigationStyle must be one of arrows, thumbnails, both, none")
	}
	if c.Width <= 0 {
		msgs = append(msgs, "width must be positive")
	}
	if c.Height <= 0 {
		msgs = append(msgs, "height must be positive")
	}
	if c.FlipSpeed <= 0 {
		msgs = append(msgs, "flipSpeed must be positive")
	}
	if c.ShadowOpacity < 0 || c.ShadowOpacity > 1 {
		msgs = append(msgs, "shadowOpacity must be between 0 and 1")
	}
	if c.AutoPlayInterval <= 0 {
		msgs = append(msgs, "autoPlayInterval must be positive")
	}
	if len(msgs) > 0 {
		return errors.New(strings.Join(msgs, ", "))
	}
	return nil
}
