package opticalengine

import (
	"strconv"
	"strings"
)

// sieve extracts DiscInfo from the backend's "list properties" /
// "list speeds" textual output by matching known key prefixes. Unknown
// lines are ignored; repeated "Write speed" lines accumulate.
func sieve(devicePath string, propertyLines, speedLines []string) DiscInfo {
	info := DiscInfo{DevicePath: devicePath, Media: NoMedia}

	for _, line := range propertyLines {
		switch {
		case hasKey(line, "Media current:"):
			info.Media = parseMediaCurrent(value(line, "Media current:"))
		case hasKey(line, "Media summary:"):
			used, avail, blocks := parseMediaSummary(value(line, "Media summary:"))
			info.UsedBytes = used
			info.AvailBytes = avail
			info.DataBlocks = blocks
			info.TotalBytes = used + avail
		case hasKey(line, "Media status :"):
			info.Blank = strings.Contains(value(line, "Media status :"), "is blank")
		case hasKey(line, "Volume id    :"):
			info.VolumeID = strings.TrimSpace(value(line, "Volume id    :"))
		}
	}

	for _, line := range speedLines {
		if hasKey(line, "Write speed  :") {
			if ws, ok := parseWriteSpeed(value(line, "Write speed  :")); ok {
				info.WriteSpeeds = append(info.WriteSpeeds, ws)
			}
		}
	}

	return info
}

func hasKey(line, key string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), key)
}

func value(line, key string) string {
	idx := strings.Index(line, key)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+len(key):])
}

// parseMediaCurrent takes only the token before the first space, mapped
// through the closed MediaType table; anything unrecognized is NoMedia.
func parseMediaCurrent(v string) MediaType {
	token := v
	if i := strings.IndexByte(v, ' '); i >= 0 {
		token = v[:i]
	}
	if mt, ok := mediaTypeByToken[token]; ok {
		return mt
	}
	return NoMedia
}

// parseMediaSummary parses "(status, blocks, used, avail)" where used
// and avail are numbers optionally suffixed with k|m|g (scaled by
// 1<<10 / 1<<20 / 1<<30). status is currently unused by callers beyond
// blank detection (handled via "Media status :" instead).
func parseMediaSummary(v string) (used, avail, blocks int64) {
	fields := strings.Split(v, ",")
	if len(fields) < 4 {
		return 0, 0, 0
	}
	blocks = parseScaledSize(strings.TrimSpace(fields[1]))
	used = parseScaledSize(strings.TrimSpace(fields[2]))
	avail = parseScaledSize(strings.TrimSpace(fields[3]))
	return used, avail, blocks
}

func parseScaledSize(s string) int64 {
	if s == "" {
		return 0
	}
	suffix := s[len(s)-1]
	var scale int64 = 1
	numPart := s
	switch suffix {
	case 'k', 'K':
		scale = 1 << 10
		numPart = s[:len(s)-1]
	case 'm', 'M':
		scale = 1 << 20
		numPart = s[:len(s)-1]
	case 'g', 'G':
		scale = 1 << 30
		numPart = s[:len(s)-1]
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(numPart), 64)
	if err != nil {
		return 0
	}
	return int64(n * float64(scale))
}

// parseWriteSpeed parses a "<bytes/s>\t<label>" entry.
func parseWriteSpeed(v string) (WriteSpeed, bool) {
	parts := strings.SplitN(v, "\t", 2)
	bps, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return WriteSpeed{}, false
	}
	label := ""
	if len(parts) > 1 {
		label = strings.TrimSpace(parts[1])
	}
	return WriteSpeed{BytesPerSecond: bps, Label: label}, true
}
