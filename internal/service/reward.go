package service

import (
	"math"
	"time"

	"github.com/cadencehq/cadence/internal/domain"
)

// Reward bounds; every computed reward is clamped into this range.
const (
	RewardMin = -0.8
	RewardMax = 2.0
)

const (
	rewardMoodImproved = 0.2
	rewardMoodDeclined = -0.3
	rewardOnTimeBonus  = 0.2
	onTimeFactor       = 1.2 // actual duration within 120% of suggestion

	rewardRatingGood = 0.5 // rating 4-5
	rewardRatingOK   = 0.1 // rating 3

	recencyDecayPerDay = 0.95
)

// baseRewards maps an outcome to its base reward term.
var baseRewards = map[domain.Outcome]float64{
	domain.OutcomeCompleted: 1.0,
	domain.OutcomePartial:   0.3,
	domain.OutcomeSkipped:   -0.5,
	domain.OutcomeIgnored:   -0.2,
}

// RewardInput gathers everything known about one resolved recommendation.
type RewardInput struct {
	Outcome          domain.Outcome
	Rating           *int // 1..5
	MoodBefore       *int
	MoodAfter        *int
	ActualMinutes    *int
	SuggestedMinutes int
}

// RewardCalculator converts an outcome event into a scalar reward:
// base(outcome) + mood term + time bonus + rating bonus, clamped to
// [RewardMin, RewardMax].
type RewardCalculator struct{}

func NewRewardCalculator() *RewardCalculator {
	return &RewardCalculator{}
}

func (c *RewardCalculator) Compute(in RewardInput) float64 {
	reward := baseRewards[in.Outcome]

	if in.MoodBefore != nil && in.MoodAfter != nil {
		switch {
		case *in.MoodAfter > *in.MoodBefore:
			reward += rewardMoodImproved
		case *in.MoodAfter < *in.MoodBefore:
			reward += rewardMoodDeclined
		}
	}

	if in.ActualMinutes != nil && in.SuggestedMinutes > 0 &&
		float64(*in.ActualMinutes) <= onTimeFactor*float64(in.SuggestedMinutes) {
		reward += rewardOnTimeBonus
	}

	if in.Rating != nil {
		switch {
		case *in.Rating >= 4:
			reward += rewardRatingGood
		case *in.Rating == 3:
			reward += rewardRatingOK
		}
	}

	if reward < RewardMin {
		return RewardMin
	}
	if reward > RewardMax {
		return RewardMax
	}
	return reward
}

// RecencyWeight down-weights old events for batch reprocessing: 0.95^days.
func (c *RewardCalculator) RecencyWeight(age time.Duration) float64 {
	days := age.Hours() / 24
	if days <= 0 {
		return 1
	}
	return math.Pow(recencyDecayPerDay, days)
}

// Weighted applies recency weighting to a historical reward's contribution.
func (c *RewardCalculator) Weighted(reward float64, age time.Duration) float64 {
	return reward * c.RecencyWeight(age)
}
