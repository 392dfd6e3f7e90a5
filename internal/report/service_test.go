package report

import (
	"bytes"
	"encoding/csv"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/authz"
	"github.com/trackifyhq/trackify/internal/evaluation"
)

func TestReportService(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Report Service Suite")
}

type mockRepository struct {
	taskRows       []TaskRow
	evalRows       []EvaluationRow
	lastTaskFilter TaskFilter
	lastEvalFilter EvaluationFilter
}

func (m *mockRepository) TaskRows(filter TaskFilter) ([]TaskRow, error) {
	m.lastTaskFilter = filter
	return m.taskRows, nil
}

func (m *mockRepository) EvaluationRows(filter EvaluationFilter) ([]EvaluationRow, error) {
	m.lastEvalFilter = filter
	return m.evalRows, nil
}

func parseCSV(buf *bytes.Buffer) [][]string {
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	gomega.Expect(err).ToNot(gomega.HaveOccurred())
	return records
}

var _ = ginkgo.Describe("ReportService", func() {
	var (
		service  *Service
		mockRepo *mockRepository
		dept     int64
	)

	supervisor := func() authz.Identity {
		return authz.Identity{UserID: 2, CompanyID: 1, Role: authz.RoleSupervisor, DepartmentID: &dept}
	}
	manager := func() authz.Identity {
		return authz.Identity{UserID: 1, CompanyID: 1, Role: authz.RoleManager, DepartmentID: &dept}
	}

	ginkgo.BeforeEach(func() {
		dept = 10
		mockRepo = &mockRepository{
			taskRows: []TaskRow{
				{
					ID:             7,
					Title:          "Restock shelves",
					Status:         "Pending",
					DepartmentName: "Operations",
					AssigneeName:   "Jane Morales",
					CreatorName:    "Bob Soto",
					DueDate:        time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
					CreatedAt:      time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC),
				},
			},
			evalRows: []EvaluationRow{
				{
					ID:             3,
					Type:           evaluation.TypeWorkerEval,
					Score:          4,
					Comments:       "steady, reliable",
					EvaluatorName:  "Bob Soto",
					EvaluatedName:  "Jane Morales",
					DepartmentName: "Operations",
					CreatedAt:      time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC),
				},
			},
		}
		lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = NewService(mockRepo, lg)
	})

	ginkgo.Describe("ExportTasks", func() {
		ginkgo.It("should write a header row and one line per task", func() {
			var buf bytes.Buffer
			err := service.ExportTasks(manager(), &buf)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			records := parseCSV(&buf)
			gomega.Expect(records).To(gomega.HaveLen(2))
			gomega.Expect(records[0]).To(gomega.Equal([]string{
				"id", "title", "status", "department", "assignee", "creator", "due_date", "created_at",
			}))
			gomega.Expect(records[1]).To(gomega.Equal([]string{
				"7", "Restock shelves", "Pending", "Operations", "Jane Morales", "Bob Soto",
				"2026-09-15", "2026-08-20 10:30",
			}))
		})

		ginkgo.It("should confine a manager to their own department", func() {
			var buf bytes.Buffer
			gomega.Expect(service.ExportTasks(manager(), &buf)).To(gomega.Succeed())

			gomega.Expect(mockRepo.lastTaskFilter.CompanyID).To(gomega.Equal(int64(1)))
			gomega.Expect(mockRepo.lastTaskFilter.DepartmentID).ToNot(gomega.BeNil())
			gomega.Expect(*mockRepo.lastTaskFilter.DepartmentID).To(gomega.Equal(int64(10)))
		})

		ginkgo.It("should produce only the header when the actor has no department", func() {
			actor := manager()
			actor.DepartmentID = nil

			var buf bytes.Buffer
			gomega.Expect(service.ExportTasks(actor, &buf)).To(gomega.Succeed())

			records := parseCSV(&buf)
			gomega.Expect(records).To(gomega.HaveLen(1))
		})

		ginkgo.It("should not narrow a superuser export", func() {
			var buf bytes.Buffer
			actor := authz.Identity{UserID: 99, IsSuperuser: true}
			gomega.Expect(service.ExportTasks(actor, &buf)).To(gomega.Succeed())

			gomega.Expect(mockRepo.lastTaskFilter.Super).To(gomega.BeTrue())
			gomega.Expect(mockRepo.lastTaskFilter.DepartmentID).To(gomega.BeNil())
		})

		ginkgo.It("should soft-deny a worker", func() {
			actor := authz.Identity{UserID: 3, CompanyID: 1, Role: authz.RoleWorker, DepartmentID: &dept}

			var buf bytes.Buffer
			err := service.ExportTasks(actor, &buf)

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.RedirectTo).ToNot(gomega.BeEmpty())
			gomega.Expect(buf.Len()).To(gomega.BeZero())
		})
	})

	ginkgo.Describe("ExportEvaluations", func() {
		ginkgo.It("should render scores and comments", func() {
			var buf bytes.Buffer
			gomega.Expect(service.ExportEvaluations(manager(), &buf)).To(gomega.Succeed())

			records := parseCSV(&buf)
			gomega.Expect(records).To(gomega.HaveLen(2))
			gomega.Expect(records[1]).To(gomega.Equal([]string{
				"3", "WORKER_EVAL", "4", "steady, reliable", "Bob Soto", "Jane Morales",
				"Operations", "2026-08-21 09:00",
			}))
		})

		ginkgo.It("should let a manager see both evaluation types in their department", func() {
			var buf bytes.Buffer
			gomega.Expect(service.ExportEvaluations(manager(), &buf)).To(gomega.Succeed())

			gomega.Expect(mockRepo.lastEvalFilter.Type).To(gomega.BeEmpty())
			gomega.Expect(*mockRepo.lastEvalFilter.EvaluatedDepartmentID).To(gomega.Equal(int64(10)))
		})

		ginkgo.It("should restrict a supervisor to worker evaluations", func() {
			var buf bytes.Buffer
			gomega.Expect(service.ExportEvaluations(supervisor(), &buf)).To(gomega.Succeed())

			gomega.Expect(mockRepo.lastEvalFilter.Type).To(gomega.Equal(evaluation.TypeWorkerEval))
			gomega.Expect(*mockRepo.lastEvalFilter.EvaluatedDepartmentID).To(gomega.Equal(int64(10)))
		})

		ginkgo.It("should soft-deny a worker", func() {
			actor := authz.Identity{UserID: 3, CompanyID: 1, Role: authz.RoleWorker, DepartmentID: &dept}

			var buf bytes.Buffer
			err := service.ExportEvaluations(actor, &buf)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})
})
