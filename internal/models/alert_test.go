package models

import "testing"

func TestAlertCondition_Valid(t *testing.T) {
	if !AlertConditionAbove.Valid() || !AlertConditionBelow.Valid() {
		t.Error("above and below must be valid")
	}
	for _, c := range []AlertCondition{"", "sideways", "ABOVE"} {
		if c.Valid() {
			t.Errorf("%q must be invalid", c)
		}
	}
}

func TestShouldTrigger(t *testing.T) {
	cases := []struct {
		name      string
		condition AlertCondition
		target    float64
		price     float64
		want      bool
	}{
		{"above met", AlertConditionAbove, 200, 205, true},
		{"above exact", AlertConditionAbove, 200, 200, true},
		{"above not met", AlertConditionAbove, 200, 199.99, false},
		{"below met", AlertConditionBelow, 180, 175, true},
		{"below exact", AlertConditionBelow, 180, 180, true},
		{"below not met", AlertConditionBelow, 180, 180.01, false},
		{"invalid condition", "sideways", 100, 100, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := PriceAlert{Condition: tc.condition, TargetPrice: tc.target}
			if got := a.ShouldTrigger(tc.price); got != tc.want {
				t.Errorf("ShouldTrigger(%v) = %v, want %v", tc.price, got, tc.want)
			}
		})
	}
}

func TestShouldTrigger_IgnoresTriggeredFlag(t *testing.T) {
	a := PriceAlert{Condition: AlertConditionAbove, TargetPrice: 100, Triggered: true}
	if !a.ShouldTrigger(150) {
		t.Error("ShouldTrigger evaluates the condition only; the one-shot guard lives in the caller")
	}
}
