package backend

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatDuration renders seconds as m:ss, or h:mm:ss once an hour is reached.
// Zero and negative values render as "0:00".
func FormatDuration(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "0:00"
	}
	total := int64(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// QualityLabel renders a format as "<height>p (<size> MB)".
func QualityLabel(f Format) string {
	height := strings.TrimSpace(string(f.Height))
	if height == "" {
		height = "N/A"
	}
	return fmt.Sprintf("%sp (%s MB)", height, strconv.FormatFloat(f.SizeMB, 'f', -1, 64))
}

// MapQualities converts the backend format list into quality options, keeping
// order. The first option is the default selection; it is empty when there
// are no formats.
func MapQualities(formats []Format) ([]QualityOption, string) {
	if len(formats) == 0 {
		return nil, ""
	}
	options := make([]QualityOption, 0, len(formats))
	for _, f := range formats {
		options = append(options, QualityOption{ID: f.ID, Label: QualityLabel(f)})
	}
	return options, options[0].ID
}

func toVideoInfo(resp infoResponse) VideoInfo {
	info := VideoInfo{
		Title:     resp.Title,
		Thumbnail: resp.Thumbnail,
	}
	if resp.Duration != nil {
		info.DurationSeconds = *resp.Duration
	}
	info.Duration = FormatDuration(info.DurationSeconds)
	info.Qualities, info.DefaultQuality = MapQualities(resp.Formats)
	return info
}
