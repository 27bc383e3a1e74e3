package domain

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ReturnCode is the short machine code stamped on every classification.
type ReturnCode string

const (
	ReturnCodeFinalSale ReturnCode = "RS-FINAL"
	ReturnCodeExpired   ReturnCode = "RS-30"
	ReturnCodeDiscount  ReturnCode = "RS-DISCOUNT"
	ReturnCodeOK        ReturnCode = "RS-OK"
	ReturnCodeUnknown   ReturnCode = "RS-UNK"
)

// Eligibility statuses. The discount status text carries the profile's
// threshold, so it is produced by the profile rather than listed here.
const (
	StatusFinalSale = "FINAL SALE"
	StatusExpired   = "EXPIRED"
	StatusEligible  = "ELIGIBLE"
	LabelReturned   = "RETURNED"
)

// Remedy option strings offered to operators, in the order they are shown.
const (
	OptionCannotReturn     = "Cannot be returned"
	OptionStoreCredit      = "Store credit (-$20 USD label)"
	OptionBonusStoreCredit = "120% store credit + free returns"
	OptionExchange         = "Item exchange (-$20 USD label)"
	OptionRefund           = "Refund (-$30 USD label)"
	OptionAlteration       = "Alteration subsidy: 10% refund + $20 USD gift voucher"
	OptionDiscretionary    = "Discretionary Refunds: We reserve the right to approve a refund outside of our standard policy if, in our judgment, it is appropriate to do so."
)

// PolicyProfile is a named eligibility rule set. The discount threshold
// is a percentage; items discounted strictly above it lose standard
// eligibility.
type PolicyProfile struct {
	Name              string  `yaml:"name"`
	DiscountThreshold float64 `yaml:"discount_threshold"`
	ReturnWindowDays  int     `yaml:"return_window_days"`
}

// Validate checks the profile's bounds.
func (p PolicyProfile) Validate() error {
	if p.DiscountThreshold < 0 || p.DiscountThreshold > 100 {
		return ErrInvalidThreshold
	}
	if p.ReturnWindowDays <= 0 {
		return fmt.Errorf("return window must be positive, got %d", p.ReturnWindowDays)
	}
	return nil
}

// DiscountStatus is the status text for items over the profile threshold.
func (p PolicyProfile) DiscountStatus() string {
	return fmt.Sprintf("More than %g%% off", p.DiscountThreshold)
}

// ClassificationInput carries the per-item facts the decision table reads.
type ClassificationInput struct {
	FinalSale       bool
	DaysHeld        *int
	DiscountPct     decimal.Decimal
	HasDiscountCode bool
	OrderCount      int
	WasReturned     bool
}

// Classification is the decision for one line item.
type Classification struct {
	Status  string
	Label   string
	Code    ReturnCode
	Options []string
}

// Classify runs the eligibility decision table. Rules apply in strict
// priority order; the first match wins. A prior return only changes the
// display label, never the decision.
func (p PolicyProfile) Classify(in ClassificationInput) Classification {
	status, options := p.decide(in)

	c := Classification{
		Status:  status,
		Label:   status,
		Code:    returnCodeFor(status, p.DiscountStatus()),
		Options: options,
	}
	if in.WasReturned {
		c.Label = LabelReturned
	}
	return c
}

func (p PolicyProfile) decide(in ClassificationInput) (string, []string) {
	if in.FinalSale {
		return StatusFinalSale, []string{OptionCannotReturn}
	}
	if in.DaysHeld != nil && *in.DaysHeld > p.ReturnWindowDays {
		return StatusExpired, []string{OptionStoreCredit}
	}
	if in.DiscountPct.GreaterThan(decimal.NewFromFloat(p.DiscountThreshold)) {
		return p.DiscountStatus(), []string{
			OptionStoreCredit,
			OptionExchange,
			OptionAlteration,
		}
	}
	if in.OrderCount == 1 {
		return StatusEligible, []string{
			OptionBonusStoreCredit,
			OptionExchange,
			OptionRefund,
			OptionAlteration,
		}
	}
	if in.HasDiscountCode {
		return StatusEligible, []string{
			OptionStoreCredit,
			OptionExchange,
			OptionAlteration,
			OptionDiscretionary,
		}
	}
	return StatusEligible, []string{
		OptionBonusStoreCredit,
		OptionExchange,
		OptionRefund,
		OptionAlteration,
	}
}

func returnCodeFor(status, discountStatus string) ReturnCode {
	switch status {
	case StatusFinalSale:
		return ReturnCodeFinalSale
	case StatusExpired:
		return ReturnCodeExpired
	case discountStatus:
		return ReturnCodeDiscount
	case StatusEligible:
		return ReturnCodeOK
	default:
		return ReturnCodeUnknown
	}
}

// Built-in profiles. "standard" matches the storefront policy in force,
// "lenient" relaxes the discount cutoff for promotional periods.
var builtinProfiles = map[string]PolicyProfile{
	"standard": {Name: "standard", DiscountThreshold: 20, ReturnWindowDays: 30},
	"lenient":  {Name: "lenient", DiscountThreshold: 30, ReturnWindowDays: 30},
}

// DefaultProfileName is used when a request does not pick a profile.
const DefaultProfileName = "standard"

// PolicySet resolves profile names to rule sets.
type PolicySet struct {
	profiles map[string]PolicyProfile
}

// NewPolicySet returns a set containing only the built-in profiles.
func NewPolicySet() *PolicySet {
	profiles := make(map[string]PolicyProfile, len(builtinProfiles))
	for name, p := range builtinProfiles {
		profiles[name] = p
	}
	return &PolicySet{profiles: profiles}
}

// LoadPolicySet reads profile overrides from a YAML file and merges them
// over the built-ins. The file holds a list of profiles.
func LoadPolicySet(path string) (*PolicySet, error) {
	set := NewPolicySet()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var doc struct {
		Profiles []PolicyProfile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	for _, p := range doc.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("policy profile without a name")
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("policy profile %q: %w", p.Name, err)
		}
		set.profiles[p.Name] = p
	}

	return set, nil
}

// Get resolves a profile by name. An empty name returns the default.
func (s *PolicySet) Get(name string) (PolicyProfile, error) {
	if name == "" {
		name = DefaultProfileName
	}
	p, ok := s.profiles[name]
	if !ok {
		return PolicyProfile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// Names lists the available profile names.
func (s *PolicySet) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	return names
}
