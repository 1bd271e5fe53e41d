// Package assignment places advocates on cases, balancing workload and
// specialization fit.
package assignment

import "github.com/legalpro/caseflow/model"

// ComputeWorkload derives an advocate's workload from their assigned
// cases.
func ComputeWorkload(advocateID string, cases []model.Case) model.Workload {
	w := model.Workload{
		AdvocateID: advocateID,
		ByStatus:   make(map[string]int),
	}

	for _, c := range cases {
		w.TotalCases++
		w.ByStatus[c.Status]++
		if model.IsActiveStatus(c.Status) {
			w.ActiveCases++
			if c.Priority == model.PriorityUrgent {
				w.UrgentCases++
			}
		}
	}

	w.Band = model.ClassifyWorkload(w.ActiveCases, w.UrgentCases)
	return w
}
