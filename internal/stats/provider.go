// Package stats aggregates read-only dashboard figures from the case
// store and the advocate directory. It holds no state and does no
// caching; every call reflects the stores at the moment of the query.
package stats

import (
	"context"
	"sort"

	"github.com/legalpro/caseflow/internal/assignment"
	"github.com/legalpro/caseflow/internal/casestore"
	"github.com/legalpro/caseflow/model"
)

// Dashboard is the aggregate returned to the dashboard endpoint.
type Dashboard struct {
	Cases     model.CaseSummary `json:"cases"`
	Active    int               `json:"active_cases"`
	Closed    int               `json:"closed_cases"`
	Dismissed int               `json:"dismissed_cases"`
	Archived  int               `json:"archived_cases"`
	Advocates []AdvocateLoad    `json:"advocates"`
}

// AdvocateLoad pairs an advocate with their live workload.
type AdvocateLoad struct {
	Advocate model.Advocate `json:"advocate"`
	Workload model.Workload `json:"workload"`
}

type Provider struct {
	cases     casestore.CaseStore
	directory casestore.AdvocateDirectory
}

func NewProvider(cases casestore.CaseStore, directory casestore.AdvocateDirectory) *Provider {
	return &Provider{cases: cases, directory: directory}
}

// Dashboard builds the full dashboard aggregate. Advocates are ordered
// heaviest first so the table surfaces overload at the top.
func (p *Provider) Dashboard(ctx context.Context) (Dashboard, error) {
	summary, err := p.cases.Summary(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Cases:     summary,
		Closed:    summary.ByStatus[model.StatusClosed],
		Dismissed: summary.ByStatus[model.StatusDismissed],
		Archived:  summary.ByStatus[model.StatusArchived],
	}
	for status, n := range summary.ByStatus {
		if model.IsActiveStatus(status) {
			d.Active += n
		}
	}

	loads, err := p.AdvocateLoads(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d.Advocates = loads
	return d, nil
}

// AdvocateLoads returns the live workload of every active advocate.
func (p *Provider) AdvocateLoads(ctx context.Context) ([]AdvocateLoad, error) {
	advocates, err := p.directory.ListAdvocates(ctx, true)
	if err != nil {
		return nil, err
	}

	loads := make([]AdvocateLoad, 0, len(advocates))
	for _, adv := range advocates {
		cases, err := p.cases.FindByAdvocate(ctx, adv.ID)
		if err != nil {
			return nil, err
		}
		loads = append(loads, AdvocateLoad{
			Advocate: adv,
			Workload: assignment.ComputeWorkload(adv.ID, cases),
		})
	}

	sort.SliceStable(loads, func(i, j int) bool {
		return loads[i].Workload.ActiveCases > loads[j].Workload.ActiveCases
	})
	return loads, nil
}
