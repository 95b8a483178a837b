package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkScoreRecord         BookmarkType = "score_record"
	BookmarkFitnessBreakthrough BookmarkType = "fitness_breakthrough"
	BookmarkPopulationCollapse  BookmarkType = "population_collapse"
	BookmarkPlateau             BookmarkType = "plateau"
)

// Bookmark marks a notable generation.
type Bookmark struct {
	Type        BookmarkType
	Generation  int
	Description string
}

// Log writes the bookmark to l.
func (b Bookmark) Log(l *slog.Logger) {
	l.Info("bookmark",
		"type", string(b.Type),
		"gen", b.Generation,
		"description", b.Description,
	)
}

// BookmarkDetector watches generation stats for moments worth revisiting.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	plateauGens int // generations without improvement that count as a plateau

	maxScore       int
	recentMeanPeak float64
	sinceImproved  int
}

// NewBookmarkDetector creates a detector that averages over historySize
// generations and reports a plateau after plateauGens generations without
// a new best.
func NewBookmarkDetector(historySize, plateauGens int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]GenerationStats, historySize),
		historySize: historySize,
		plateauGens: plateauGens,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats GenerationStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkScoreRecord(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkBreakthrough(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkCollapse(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}
	if b := bd.checkPlateau(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)

	if stats.ChampionScore > bd.maxScore {
		bd.maxScore = stats.ChampionScore
	}
	if stats.MeanFitness > bd.recentMeanPeak {
		bd.recentMeanPeak = stats.MeanFitness
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats GenerationStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []GenerationStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkScoreRecord(stats GenerationStats) *Bookmark {
	if stats.ChampionScore <= bd.maxScore {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkScoreRecord,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("Champion scored %d, previous record %d", stats.ChampionScore, bd.maxScore),
	}
}

func (bd *BookmarkDetector) checkBreakthrough(stats GenerationStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.SmoothedFitness
	}
	avg := total / float64(len(history))
	if avg <= 0 {
		return nil
	}

	if stats.SmoothedFitness > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkFitnessBreakthrough,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Champion fitness %.1f is %.1fx average (%.1f)", stats.SmoothedFitness, stats.SmoothedFitness/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkCollapse(stats GenerationStats) *Bookmark {
	if bd.recentMeanPeak <= 0 {
		return nil
	}

	drop := 1.0 - stats.MeanFitness/bd.recentMeanPeak
	if drop > 0.5 {
		// Reset peak after collapse
		oldPeak := bd.recentMeanPeak
		bd.recentMeanPeak = stats.MeanFitness

		return &Bookmark{
			Type:        BookmarkPopulationCollapse,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Mean fitness fell %.0f%% from peak %.1f to %.1f", drop*100, oldPeak, stats.MeanFitness),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPlateau(stats GenerationStats) *Bookmark {
	if stats.Improved {
		bd.sinceImproved = 0
		return nil
	}
	bd.sinceImproved++

	// Trigger exactly once per plateau
	if bd.plateauGens > 0 && bd.sinceImproved == bd.plateauGens {
		return &Bookmark{
			Type:        BookmarkPlateau,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("No new best for %d generations (best %.1f)", bd.plateauGens, stats.BestFitness),
		}
	}
	return nil
}
