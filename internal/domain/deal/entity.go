package deal

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Deal is one open opportunity row from the deals table.
// OpportunityNumber is the stable identifier used to join factor rows and
// news lookups.
type Deal struct {
	OpportunityNumber string          `db:"opportunity_number"`
	Topic             string          `db:"topic"`
	AccountName       string          `db:"account_name"`
	AccountIndustry   string          `db:"account_industry"`
	OpportunityType   string          `db:"opportunity_type"`
	Status            string          `db:"op_status"`
	ExpectedValue     decimal.Decimal `db:"expected_value"`
	WinProbability    float64         `db:"win_probability"`
	PredictedOutcome  string          `db:"predicted_outcome"`
	CreatedOn         time.Time       `db:"op_created_on"`
}

// Industry returns the normalized industry key used for news grouping.
func (d Deal) Industry() string {
	return strings.ToLower(strings.TrimSpace(d.AccountIndustry))
}

// Column describes one column of the deals table, used to build
// schema-aware SQL generation prompts.
type Column struct {
	Name     string `db:"column_name"`
	DataType string `db:"data_type"`
}

// Industries collects distinct non-empty industries from a deal list,
// preserving first-seen order.
func Industries(deals []Deal) []string {
	seen := make(map[string]struct{}, len(deals))
	out := make([]string, 0, len(deals))
	for _, d := range deals {
		ind := d.Industry()
		if ind == "" {
			continue
		}
		if _, ok := seen[ind]; ok {
			continue
		}
		seen[ind] = struct{}{}
		out = append(out, ind)
	}
	return out
}

// OpportunityNumbers collects trimmed non-empty identifiers from a deal list.
func OpportunityNumbers(deals []Deal) []string {
	out := make([]string, 0, len(deals))
	for _, d := range deals {
		id := strings.TrimSpace(d.OpportunityNumber)
		if id == "" {
			continue
		}
		out = append(out, id)
	}
	return out
}
