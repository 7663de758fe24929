//go:build integration
// +build integration

package pipeline_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dirbs/dirbs-core/internal/classify"
	"github.com/dirbs/dirbs-core/internal/listgen"
)

// These specs walk a single IMEI through the two stages that sit on
// either side of classification_state: a condition reconciling its
// matching set (internal/classify), and listgen diffing the resulting
// blacklist against a base run (internal/listgen). No database is
// involved; classification_state and the blacklist query are
// represented directly as the Go values those layers already operate
// on, so the suite exercises the real decision logic end to end.
var _ = Describe("stolen-condition reconcile feeding a listgen run", func() {
	var (
		cond     classify.Condition
		runStart time.Time
	)

	BeforeEach(func() {
		runStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		cond = classify.Condition{
			Label:                   "local_stolen",
			Blocking:                true,
			Reason:                  "stolen device",
			MaxAllowedMatchingRatio: 0.1,
		}
	})

	Context("when the matching set is within the safety ratio", func() {
		It("reconciles a new match into an insertable open row", func() {
			Expect(classify.CheckSafetyRatio(cond.Label, 2, 1000, cond.MaxAllowedMatchingRatio, false)).To(Succeed())

			rec := classify.Reconcile(cond, map[string]bool{"64220297727231": true}, nil, runStart, nil, nil)

			Expect(rec.ToInsert).To(HaveLen(1))
			Expect(rec.ToInsert[0].ImeiNorm).To(Equal("64220297727231"))
			Expect(rec.ToInsert[0].BlockDate).NotTo(BeNil())
			Expect(*rec.ToInsert[0].BlockDate).To(Equal(runStart))
		})
	})

	Context("when the matching set blows past the safety ratio", func() {
		It("aborts before any row is reconciled", func() {
			err := classify.CheckSafetyRatio(cond.Label, 500, 1000, cond.MaxAllowedMatchingRatio, false)
			Expect(err).To(HaveOccurred())
		})

		It("is bypassed by --no-safety-check", func() {
			Expect(classify.CheckSafetyRatio(cond.Label, 500, 1000, cond.MaxAllowedMatchingRatio, true)).To(Succeed())
		})
	})

	Describe("the resulting blacklist run-over-run delta", func() {
		var baseRunID int64 = 10

		It("reports a newly-blocked IMEI as new and a closed one as resolved", func() {
			previous := []listgen.BlacklistRow{
				{ImeiNorm: "11111111111111", BlockDate: runStart.AddDate(0, 0, -30), Reasons: []string{"local_stolen"}, StartRunID: 9},
			}
			current := []listgen.BlacklistRow{
				{ImeiNorm: "64220297727231", BlockDate: runStart, Reasons: []string{"local_stolen"}, StartRunID: baseRunID + 1},
			}

			deltas := listgen.ComputeBlacklistDelta(current, previous, baseRunID)

			Expect(deltas).To(HaveLen(2))
			kinds := map[string]listgen.ChangeKind{}
			for _, d := range deltas {
				kinds[d.Row.ImeiNorm] = d.Kind
			}
			Expect(kinds["64220297727231"]).To(Equal(listgen.ChangeNew))
			Expect(kinds["11111111111111"]).To(Equal(listgen.ChangeResolved))
		})

		It("passes the sanity guard when the delta is a small fraction of the base run", func() {
			Expect(listgen.SanityCheck(1, 100, 0.25, false)).To(Succeed())
		})

		It("rejects a run whose delta dwarfs the base run", func() {
			err := listgen.SanityCheck(80, 100, 0.25, false)
			Expect(err).To(HaveOccurred())
		})

		It("lets --disable-sanity-checks through regardless of delta size", func() {
			Expect(listgen.SanityCheck(80, 100, 0.25, true)).To(Succeed())
		})
	})
})
