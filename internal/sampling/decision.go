package sampling

import (
	"strings"

	"github.com/banshee-data/powerguard/internal/classifier"
)

// VoteSlots is the length of the vote history ring.
const VoteSlots = 3

// TheftProbability reduces a classifier result to one probability. Labels are
// matched case-insensitively by substring and the first applicable rule wins:
//
//  1. any probability mass on labels containing "theft" or "tamper";
//  2. 1 - p(normal) when a "normal" label exists;
//  3. the "on" mass when the relay is on, else the "off" mass, when such
//     labels exist;
//  4. 1 - p(normal), which is 1 since no normal label exists.
func TheftProbability(res classifier.Result, relayOn bool) float64 {
	var (
		theft, normal, on, off float64
		hasNormal, hasOnOff    bool
	)
	for _, pred := range res.Predictions {
		label := strings.ToLower(pred.Label)
		switch {
		case strings.Contains(label, "theft"), strings.Contains(label, "tamper"):
			theft += pred.Value
		case strings.Contains(label, "normal"):
			normal = pred.Value
			hasNormal = true
		case strings.Contains(label, "off"):
			off += pred.Value
			hasOnOff = true
		case strings.Contains(label, "on"):
			on += pred.Value
			hasOnOff = true
		}
	}

	switch {
	case theft > 0:
		return theft
	case hasNormal:
		return 1 - normal
	case hasOnOff:
		if relayOn {
			return on
		}
		return off
	default:
		return 1 - normal
	}
}

// DecisionConfig holds the smoothing and alerting parameters.
type DecisionConfig struct {
	// Alpha is the EWMA weight of the newest window.
	Alpha float64
	// AlertThreshold raises the alert when the EWMA reaches it.
	AlertThreshold float64
	// DecisionThreshold binarizes a window's probability into a vote.
	DecisionThreshold float64
	// VoteAlertCount raises the alert when this many of the last
	// VoteSlots votes are set.
	VoteAlertCount int
}

// DefaultDecisionConfig returns α=0.5, alert at 0.6 or 2 of 3 votes, and a
// per-window decision threshold of 0.5.
func DefaultDecisionConfig() DecisionConfig {
	return DecisionConfig{
		Alpha:             0.5,
		AlertThreshold:    0.6,
		DecisionThreshold: 0.5,
		VoteAlertCount:    2,
	}
}

// Decision is the outcome of one window.
type Decision struct {
	Probability float64
	EWMA        float64
	Votes       int
	Alert       bool
}

// Decider smooths per-window probabilities into an alert. Its state lives for
// the whole run and starts at zero.
type Decider struct {
	cfg   DecisionConfig
	ewma  float64
	votes [VoteSlots]uint8
	next  int
}

// NewDecider returns a Decider with zero EWMA and an empty vote history.
func NewDecider(cfg DecisionConfig) *Decider {
	return &Decider{cfg: cfg}
}

// Update folds in the probability of one window.
func (d *Decider) Update(p float64) Decision {
	d.ewma = d.cfg.Alpha*p + (1-d.cfg.Alpha)*d.ewma

	var vote uint8
	if p >= d.cfg.DecisionThreshold {
		vote = 1
	}
	d.votes[d.next] = vote
	d.next = (d.next + 1) % VoteSlots

	votes := 0
	for _, v := range d.votes {
		votes += int(v)
	}
	return Decision{
		Probability: p,
		EWMA:        d.ewma,
		Votes:       votes,
		Alert:       d.ewma >= d.cfg.AlertThreshold || votes >= d.cfg.VoteAlertCount,
	}
}

// EWMA returns the current smoothed probability.
func (d *Decider) EWMA() float64 { return d.ewma }

// History returns the vote ring in slot order.
func (d *Decider) History() [VoteSlots]uint8 { return d.votes }
