package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehberlik-servisi/rehberlik-api/internal/dto"
	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
	"github.com/rehberlik-servisi/rehberlik-api/internal/repository"
	"github.com/rehberlik-servisi/rehberlik-api/pkg/jobs"
)

type fakeJobStore struct {
	jobs      map[string]*models.ReportJob
	createErr error
	updates   []repository.UpdateReportJobParams
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*models.ReportJob)}
}

func (f *fakeJobStore) Create(_ context.Context, job *models.ReportJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	if job.ID == "" {
		job.ID = "job-1"
	}
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobStore) GetByID(_ context.Context, id string) (*models.ReportJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (f *fakeJobStore) Update(_ context.Context, id string, params repository.UpdateReportJobParams) error {
	f.updates = append(f.updates, params)
	job, ok := f.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (f *fakeJobStore) ListQueued(context.Context, int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, job := range f.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (f *fakeJobStore) ListFinishedBefore(context.Context, time.Time, int) ([]models.ReportJob, error) {
	return nil, nil
}

type fakeQueue struct {
	enqueued []jobs.Job
	err      error
}

func (f *fakeQueue) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, job)
	return nil
}

type fakeExporter struct {
	result *ExportResult
	err    error
}

func (f *fakeExporter) Generate(context.Context, *models.ReportJob) (*ExportResult, error) {
	return f.result, f.err
}

func TestReportServiceCreateJob(t *testing.T) {
	store := newFakeJobStore()
	queue := &fakeQueue{}
	svc := NewReportService(store, queue, nil, nil, ReportServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Window: models.WindowWeek,
		Date:   "2024-03-07",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)

	stored := store.jobs[resp.ID]
	require.NotNil(t, stored)
	// Format defaults to CSV.
	assert.Equal(t, models.ReportFormatCSV, stored.Params.Format)
	assert.Equal(t, "2024-03-07", stored.Params.ReferenceDate)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	svc := NewReportService(newFakeJobStore(), &fakeQueue{}, nil, nil, ReportServiceConfig{})

	cases := []struct {
		name string
		req  dto.ReportRequest
	}{
		{"unknown window", dto.ReportRequest{Window: "fortnight"}},
		{"custom without dates", dto.ReportRequest{Window: models.WindowCustom, From: "2024-03-01"}},
		{"bad format", dto.ReportRequest{Window: models.WindowWeek, Format: "docx"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateJob(context.Background(), tc.req)
			assert.Error(t, err)
		})
	}
}

func TestReportServiceCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	store := newFakeJobStore()
	queue := &fakeQueue{err: errors.New("queue stopped")}
	svc := NewReportService(store, queue, nil, nil, ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{Window: models.WindowToday})
	require.Error(t, err)

	stored := store.jobs["job-1"]
	require.NotNil(t, stored)
	assert.Equal(t, models.ReportStatusFailed, stored.Status)
}

func TestReportServiceGetStatus(t *testing.T) {
	store := newFakeJobStore()
	url := "/api/v1/reports/job-1/download?token=abc"
	store.jobs["job-1"] = &models.ReportJob{
		ID:        "job-1",
		Status:    models.ReportStatusFinished,
		Progress:  100,
		ResultURL: &url,
	}
	svc := NewReportService(store, &fakeQueue{}, nil, nil, ReportServiceConfig{})

	status, err := svc.GetStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, status.Status)
	require.NotNil(t, status.ResultURL)
	assert.Equal(t, url, *status.ResultURL)

	_, err = svc.GetStatus(context.Background(), "missing")
	assert.Error(t, err)
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	store := newFakeJobStore()
	store.jobs["job-1"] = &models.ReportJob{ID: "job-1", Status: models.ReportStatusQueued}
	store.jobs["job-2"] = &models.ReportJob{ID: "job-2", Status: models.ReportStatusFinished}
	queue := &fakeQueue{}
	svc := NewReportService(store, queue, nil, nil, ReportServiceConfig{})

	svc.RecoverPendingJobs(context.Background())

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "job-1", queue.enqueued[0].ID)
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	store := newFakeJobStore()
	store.jobs["job-1"] = &models.ReportJob{ID: "job-1", Status: models.ReportStatusQueued}
	worker := NewReportWorker(store, &fakeExporter{
		result: &ExportResult{URL: "/api/v1/reports/job-1/download?token=abc"},
	}, 3, nil)

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1}))

	job := store.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Contains(t, *job.ResultURL, "token=abc")
	require.NotNil(t, job.FinishedAt)
}

func TestReportWorkerHandleRetriesThenFails(t *testing.T) {
	store := newFakeJobStore()
	store.jobs["job-1"] = &models.ReportJob{ID: "job-1", Status: models.ReportStatusQueued}
	worker := NewReportWorker(store, &fakeExporter{err: errors.New("render failed")}, 2, nil)

	// Attempts below the cap go back to the queue.
	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1}))
	assert.Equal(t, models.ReportStatusQueued, store.jobs["job-1"].Status)

	// The final attempt marks the job failed.
	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2}))
	job := store.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "render failed", *job.ErrorMessage)
}

func TestReportServiceResolveDownloadRejectsBadTokens(t *testing.T) {
	store := newFakeJobStore()
	exporter := newTestExportService(t, &fakeStatsQuerier{report: weekReport(t)}, newMemFileStore())
	svc := NewReportService(store, &fakeQueue{}, exporter, nil, ReportServiceConfig{})

	_, err := svc.ResolveDownload(context.Background(), "job-1", "not-a-token")
	assert.Error(t, err)

	// A valid token for a different job is rejected before any lookup.
	token, _, err := exporter.signer.Generate("job-2", "job-2/file.csv")
	require.NoError(t, err)
	_, err = svc.ResolveDownload(context.Background(), "job-1", token)
	assert.Error(t, err)

	// A token for a job that does not exist surfaces not found.
	token, _, err = exporter.signer.Generate("job-1", "job-1/file.csv")
	require.NoError(t, err)
	_, err = svc.ResolveDownload(context.Background(), "job-1", token)
	assert.Error(t, err)
}

func TestReportWorkerHandleMissingJob(t *testing.T) {
	worker := NewReportWorker(newFakeJobStore(), &fakeExporter{}, 3, nil)
	assert.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "ghost"}))
}
