package opticalengine

import (
	"regexp"
	"strconv"
	"strings"
)

// JobState is a burn job's state machine position.
type JobState int

const (
	JobIdle JobState = iota
	JobRunning
	JobStalled
	JobFinished
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobIdle:
		return "Idle"
	case JobRunning:
		return "Running"
	case JobStalled:
		return "Stalled"
	case JobFinished:
		return "Finished"
	case JobFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// StatusEvent is one state transition or in-place update emitted while
// parsing the backend's message stream.
type StatusEvent struct {
	State    JobState
	Progress float64 // 0-100, meaningful only for Running/Stalled
	Speed    string  // current write speed, updated in place, may be stale
}

// RegionObserved is an incremental check-media region report, emitted
// while a checkmedia job is running (before the job's terminal
// fractions are computed).
type RegionObserved struct {
	Offset     int64
	SizeBlocks int64
	Status     string
}

var (
	reClosingTrack  = regexp.MustCompile(`UPDATE : Closing track/session\.`)
	rePatient       = regexp.MustCompile(`UPDATE : Thank you for being patient\.`)
	rePercent       = regexp.MustCompile(`([0-9.]+)%\s*(fifo|done)`)
	reSpeed         = regexp.MustCompile(`([0-9.]+x)[bBcCdD.]`)
	reMBWritten     = regexp.MustCompile(`([0-9]+)\s*of\s*([0-9]+)\s*MB written`)
	reBlocksRead    = regexp.MustCompile(`([0-9]+)\s*blocks read in ([0-9]+)\s*seconds\s*,\s*([0-9.]+)x`)
	reBlankingDone  = regexp.MustCompile(`Blanking done`)
	reWriteComplete = regexp.MustCompile(`Writing to .* completed successfully\.`)
	reMediaRegion   = regexp.MustCompile(`Media region\s*:\s*([0-9]+)\s+([0-9]+)\s+(\S+(?:\s+\S+)*)`)
)

// progressParser holds the mutable state (current speed, data block
// count for dump/check jobs) threaded through successive message
// parses; first-match-wins per message, in the fixed pattern order.
type progressParser struct {
	dataBlocks   int64
	currentSpeed string
	infoMessages []string
}

func newProgressParser(dataBlocks int64) *progressParser {
	return &progressParser{dataBlocks: dataBlocks}
}

// parseMessage matches message against the ordered pattern pipeline,
// returning the resulting event (if any) and, for a checkmedia region
// line, the parsed region (region lines never produce a StatusEvent).
func (p *progressParser) parseMessage(message string) (*StatusEvent, *RegionObserved) {
	switch {
	case reClosingTrack.MatchString(message):
		return &StatusEvent{State: JobStalled, Progress: 1, Speed: p.currentSpeed}, nil
	case rePatient.MatchString(message):
		return &StatusEvent{State: JobStalled, Progress: 0, Speed: p.currentSpeed}, nil
	case rePercent.MatchString(message):
		m := rePercent.FindStringSubmatch(message)
		pct, _ := strconv.ParseFloat(m[1], 64)
		return &StatusEvent{State: JobRunning, Progress: pct, Speed: p.currentSpeed}, nil
	case reSpeed.MatchString(message):
		m := reSpeed.FindStringSubmatch(message)
		p.currentSpeed = m[1]
		return nil, nil
	case reMBWritten.MatchString(message):
		m := reMBWritten.FindStringSubmatch(message)
		written, _ := strconv.ParseFloat(m[1], 64)
		total, _ := strconv.ParseFloat(m[2], 64)
		pct := 0.0
		if total > 0 {
			pct = 100 * written / total
		}
		return &StatusEvent{State: JobRunning, Progress: pct, Speed: p.currentSpeed}, nil
	case reBlocksRead.MatchString(message):
		m := reBlocksRead.FindStringSubmatch(message)
		read, _ := strconv.ParseFloat(m[1], 64)
		pct := 0.0
		if p.dataBlocks > 0 {
			pct = 100 * read / float64(p.dataBlocks)
		}
		return &StatusEvent{State: JobRunning, Progress: pct, Speed: p.currentSpeed}, nil
	case reBlankingDone.MatchString(message), reWriteComplete.MatchString(message):
		return &StatusEvent{State: JobFinished, Progress: 100, Speed: p.currentSpeed}, nil
	case reMediaRegion.MatchString(message):
		m := reMediaRegion.FindStringSubmatch(message)
		offset, _ := strconv.ParseInt(m[1], 10, 64)
		size, _ := strconv.ParseInt(m[2], 10, 64)
		return nil, &RegionObserved{Offset: offset, SizeBlocks: size, Status: m[3]}
	default:
		p.infoMessages = append(p.infoMessages, message)
		return nil, nil
	}
}

// takeInfoMessages returns and clears the accumulated non-matching
// message buffer.
func (p *progressParser) takeInfoMessages() []string {
	msgs := p.infoMessages
	p.infoMessages = nil
	return msgs
}

// classifyRegion buckets a single checkmedia region report into
// good/slow/bad per §4.4.4: bad if the status starts with "-"; slow if
// it contains "slow"; good otherwise (including a leading "0" with no
// "slow").
func classifyRegion(status string) string {
	switch {
	case len(status) > 0 && status[0] == '-':
		return "bad"
	case strings.Contains(status, "slow"):
		return "slow"
	default:
		return "good"
	}
}
