package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Christina1281995/tema-emotions/internal/dataset"
	"github.com/Christina1281995/tema-emotions/internal/identity"
	"github.com/Christina1281995/tema-emotions/internal/models"
	"github.com/Christina1281995/tema-emotions/internal/repository"
	"github.com/Christina1281995/tema-emotions/internal/session"
)

var ( // Define custom errors
	ErrUnknownUser        = errors.New("username not found")
	ErrStorageUnavailable = errors.New("results storage is unavailable")
	ErrStorageError       = errors.New("failed to store label record")
	ErrStaleSubmission    = errors.New("submission does not match the current row")
	ErrDatasetChanged     = errors.New("dataset row identity changed since render")
	ErrInvalidLabel       = errors.New("label fields violate the configured schema")
	ErrNoDataset          = errors.New("no dataset attached to this session")
	ErrDatasetAttached    = errors.New("session already has a dataset")
)

// LabelingService orchestrates login, progress tracking and label submission.
type LabelingService struct {
	users      *identity.Directory
	loader     *dataset.Loader
	sessions   *session.Manager
	repo       repository.ResultRepository
	mode       models.LabelingMode
	predefined bool
	logger     *zap.Logger
}

// NewLabelingService creates the labeling service.
func NewLabelingService(
	users *identity.Directory,
	loader *dataset.Loader,
	sessions *session.Manager,
	repo repository.ResultRepository,
	mode models.LabelingMode,
	predefined bool,
	logger *zap.Logger,
) *LabelingService {
	return &LabelingService{
		users:      users,
		loader:     loader,
		sessions:   sessions,
		repo:       repo,
		mode:       mode,
		predefined: predefined,
		logger:     logger,
	}
}

// Login validates the username, resumes progress from storage history and
// opens a session. In predefined mode the user's dataset is loaded here; in
// upload mode the session starts without one.
func (s *LabelingService) Login(ctx context.Context, username string) (*session.Session, error) {
	user, ok := s.users.Lookup(username)
	if !ok {
		return nil, ErrUnknownUser
	}

	var ds *dataset.Dataset
	if s.predefined {
		var err error
		ds, err = s.loader.Load(user.DatasetPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load dataset for %s: %w", username, err)
		}
	}

	progress, err := session.Resume(ctx, s.repo, username)
	if err != nil {
		s.logger.Error("Failed to resume progress", zap.String("author", username), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	sess := s.sessions.Create(username, ds, progress)

	s.logger.Info("Labeler logged in",
		zap.String("author", username),
		zap.Int("current_index", progress.Current()))

	return sess, nil
}

// Logout discards the session. Progress stays recomputable from storage.
func (s *LabelingService) Logout(sess *session.Session) {
	s.sessions.Delete(sess.Token)
	s.logger.Info("Labeler logged out", zap.String("author", sess.Author))
}

// AttachDataset binds an uploaded dataset to the session. Only allowed in
// upload mode, and only once per session.
func (s *LabelingService) AttachDataset(sess *session.Session, ds *dataset.Dataset) error {
	sess.Lock()
	defer sess.Unlock()

	if sess.Dataset != nil {
		return ErrDatasetAttached
	}
	sess.Dataset = ds

	s.logger.Info("Dataset attached to session",
		zap.String("author", sess.Author),
		zap.Int("rows", ds.Len()))
	return nil
}

// CurrentRow returns the row at the session's current index together with
// progress information. Row is nil once the dataset is exhausted.
func (s *LabelingService) CurrentRow(sess *session.Session) (*models.CurrentRowResponse, error) {
	sess.Lock()
	defer sess.Unlock()

	if sess.Dataset == nil {
		return nil, ErrNoDataset
	}

	resp := &models.CurrentRowResponse{
		Progress:     progressView(sess.Progress, sess.Dataset.Len()),
		FormDefaults: sess.Progress.FormDefaults(),
	}

	if !sess.Progress.IsComplete(sess.Dataset.Len()) {
		row, ok := sess.Dataset.View(sess.Progress.Current())
		if !ok {
			return nil, fmt.Errorf("current index %d out of dataset range", sess.Progress.Current())
		}
		resp.Row = row
	}

	return resp, nil
}

// Progress returns the session's position without row content.
func (s *LabelingService) Progress(sess *session.Session) (*models.ProgressView, error) {
	sess.Lock()
	defer sess.Unlock()

	if sess.Dataset == nil {
		return nil, ErrNoDataset
	}

	view := progressView(sess.Progress, sess.Dataset.Len())
	return &view, nil
}

// Submit validates a candidate label against the currently presented row and
// commits it exactly once. Progress advances strictly after the insert is
// confirmed, so a failed write never skips a row.
func (s *LabelingService) Submit(ctx context.Context, sess *session.Session, req models.SubmitRequest) (*models.SubmitResponse, error) {
	sess.Lock()
	defer sess.Unlock()

	if sess.Dataset == nil {
		return nil, ErrNoDataset
	}

	if req.DisplayedIndex == nil || *req.DisplayedIndex != sess.Progress.Current() {
		return nil, ErrStaleSubmission
	}

	row, ok := sess.Dataset.Row(sess.Progress.Current())
	if !ok {
		// Current index past the end: the form should not have been offered.
		return nil, ErrStaleSubmission
	}

	if req.MessageID != row.MessageID {
		return nil, ErrDatasetChanged
	}

	if err := models.ValidateLabelFields(s.mode, req.Fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLabel, err)
	}

	rec := &models.LabelRecord{
		Author:     sess.Author,
		RowIndex:   sess.Progress.Current(),
		MessageID:  row.MessageID,
		Text:       row.Text,
		Source:     row.Source,
		Emotion:    req.Fields.Emotion,
		Target:     req.Fields.Target,
		Urgent:     req.Fields.Urgent,
		Irrelevant: req.Fields.Irrelevant,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateRow) {
			// Another session for the same author got there first.
			return nil, ErrStaleSubmission
		}
		s.logger.Error("Failed to insert label record",
			zap.String("author", sess.Author),
			zap.Int("row_index", rec.RowIndex),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageError, err)
	}

	defaults := sess.Progress.Advance()

	s.logger.Info("Row labeled",
		zap.String("author", sess.Author),
		zap.Int("row_index", rec.RowIndex),
		zap.String("emotion", string(rec.Emotion)))

	return &models.SubmitResponse{
		Record:       rec,
		CurrentIndex: sess.Progress.Current(),
		Complete:     sess.Progress.IsComplete(sess.Dataset.Len()),
		FormDefaults: defaults,
	}, nil
}

// Export returns all of the author's label records in row order.
func (s *LabelingService) Export(ctx context.Context, author string) ([]*models.LabelRecord, error) {
	records, err := s.repo.ListByAuthor(ctx, author)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageError, err)
	}
	return records, nil
}

func progressView(p *session.Progress, total int) models.ProgressView {
	percent := 100
	if total > 0 {
		percent = p.Current() * 100 / total
		if percent > 100 {
			percent = 100
		}
	}
	return models.ProgressView{
		CurrentIndex: p.Current(),
		Total:        total,
		Percent:      percent,
		Complete:     p.IsComplete(total),
	}
}
