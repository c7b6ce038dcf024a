package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/harborfin/onboarding-api/internal/drive"
	appErrors "github.com/harborfin/onboarding-api/pkg/errors"
)

const (
	templateSubfolder = "template"
	answerSubfolder   = "answer"
)

type folderDrive interface {
	RootFolder() string
	ListChildren(ctx context.Context, path string) ([]drive.Item, error)
	GetItem(ctx context.Context, path string) (*drive.Item, error)
	EnsureFolder(ctx context.Context, path string) (string, error)
	Rename(ctx context.Context, itemID, newName string) error
	DeleteTree(ctx context.Context, path string) error
}

// FolderServiceConfig tunes hierarchy behaviour.
type FolderServiceConfig struct {
	// PreserveAnswersOnRename renames a question folder in place instead of
	// deleting and recreating it, so submitted answer files survive.
	PreserveAnswersOnRename bool
}

// FolderService keeps the remote folder hierarchy
// CLIENTS/<client>_<loginKey>/<question>/{template,answer} consistent with
// the relational model. Hierarchy mutations for one client are serialized
// behind a per-loginKey mutex; there is no cross-process locking.
type FolderService struct {
	drive  folderDrive
	logger *zap.Logger
	cfg    FolderServiceConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFolderService constructs the service.
func NewFolderService(d folderDrive, logger *zap.Logger, cfg FolderServiceConfig) *FolderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FolderService{
		drive:  d,
		logger: logger,
		cfg:    cfg,
		locks:  make(map[string]*sync.Mutex),
	}
}

// PreservesAnswersOnRename reports whether question renames keep prior
// uploads. Callers clearing stale references depend on this.
func (s *FolderService) PreservesAnswersOnRename() bool {
	return s.cfg.PreserveAnswersOnRename
}

// ClientFolderName derives the folder segment anchoring a client's tree.
// The loginKey, not the display name, is the identity anchor.
func ClientFolderName(loginKey, clientName string) string {
	return drive.Sanitize(clientName) + "_" + loginKey
}

func (s *FolderService) clientPath(loginKey, clientName string) string {
	return s.drive.RootFolder() + "/" + ClientFolderName(loginKey, clientName)
}

// QuestionPath renders the remote path of a question folder.
func (s *FolderService) QuestionPath(loginKey, clientName, questionText string) string {
	return s.clientPath(loginKey, clientName) + "/" + drive.Sanitize(questionText)
}

func (s *FolderService) lock(loginKey string) func() {
	s.mu.Lock()
	m, ok := s.locks[loginKey]
	if !ok {
		m = &sync.Mutex{}
		s.locks[loginKey] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func validateIdentity(loginKey, clientName string) error {
	if strings.TrimSpace(loginKey) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "loginKey is required")
	}
	if strings.TrimSpace(clientName) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "clientName is required")
	}
	return nil
}

// EnsureClientFolder makes sure the root container and the client folder
// exist, returning the client folder id. Safe to call repeatedly.
func (s *FolderService) EnsureClientFolder(ctx context.Context, loginKey, clientName string) (string, error) {
	if err := validateIdentity(loginKey, clientName); err != nil {
		return "", err
	}
	unlock := s.lock(loginKey)
	defer unlock()
	return s.ensureClientFolderLocked(ctx, loginKey, clientName)
}

func (s *FolderService) ensureClientFolderLocked(ctx context.Context, loginKey, clientName string) (string, error) {
	if _, err := s.drive.EnsureFolder(ctx, s.drive.RootFolder()); err != nil {
		return "", wrapRemoteErr(err, "failed to ensure root container")
	}
	id, err := s.drive.EnsureFolder(ctx, s.clientPath(loginKey, clientName))
	if err != nil {
		return "", wrapRemoteErr(err, "failed to ensure client folder")
	}
	return id, nil
}

// EnsureQuestionFolders creates each question's folder with its template and
// answer subfolders. Folder creation always precedes any upload into it.
func (s *FolderService) EnsureQuestionFolders(ctx context.Context, loginKey, clientName string, questions []string) error {
	if err := validateIdentity(loginKey, clientName); err != nil {
		return err
	}
	if len(questions) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "questions must not be empty")
	}

	unlock := s.lock(loginKey)
	defer unlock()

	if _, err := s.ensureClientFolderLocked(ctx, loginKey, clientName); err != nil {
		return err
	}
	for _, question := range questions {
		if err := s.ensureQuestionLocked(ctx, loginKey, clientName, question); err != nil {
			return err
		}
	}
	return nil
}

func (s *FolderService) ensureQuestionLocked(ctx context.Context, loginKey, clientName, questionText string) error {
	base := s.QuestionPath(loginKey, clientName, questionText)
	for _, path := range []string{base, base + "/" + templateSubfolder, base + "/" + answerSubfolder} {
		if _, err := s.drive.EnsureFolder(ctx, path); err != nil {
			return wrapRemoteErr(err, "failed to ensure question folder")
		}
	}
	return nil
}

// ReconcileRename migrates a question's folder when an edit changes its
// sanitized path segment. The default renames the folder in place, keeping
// prior answer uploads; the legacy mode deletes the old subtree and
// recreates empty folders, which destroys previously submitted files.
func (s *FolderService) ReconcileRename(ctx context.Context, loginKey, clientName, oldText, newText string) error {
	if err := validateIdentity(loginKey, clientName); err != nil {
		return err
	}

	oldSegment := drive.Sanitize(oldText)
	newSegment := drive.Sanitize(newText)
	if oldSegment == newSegment {
		return nil
	}

	unlock := s.lock(loginKey)
	defer unlock()

	oldPath := s.clientPath(loginKey, clientName) + "/" + oldSegment

	if s.cfg.PreserveAnswersOnRename {
		item, err := s.drive.GetItem(ctx, oldPath)
		switch {
		case err == nil:
			if rerr := s.drive.Rename(ctx, item.ID, newSegment); rerr != nil {
				return wrapRemoteErr(rerr, "failed to rename question folder")
			}
		case drive.IsNotFound(err):
			// Old folder never existed; just build the new structure.
		default:
			return wrapRemoteErr(err, "failed to resolve question folder")
		}
		return s.ensureQuestionLocked(ctx, loginKey, clientName, newText)
	}

	if err := s.drive.DeleteTree(ctx, oldPath); err != nil {
		return wrapRemoteErr(err, "failed to delete renamed question folder")
	}
	s.logger.Warn("question rename discarded prior uploads",
		zap.String("login_key", loginKey),
		zap.String("old_segment", oldSegment),
		zap.String("new_segment", newSegment),
	)
	return s.ensureQuestionLocked(ctx, loginKey, clientName, newText)
}

// DeleteQuestionTree removes a question's entire folder subtree.
func (s *FolderService) DeleteQuestionTree(ctx context.Context, loginKey, clientName, questionText string) error {
	if err := validateIdentity(loginKey, clientName); err != nil {
		return err
	}
	unlock := s.lock(loginKey)
	defer unlock()
	if err := s.drive.DeleteTree(ctx, s.QuestionPath(loginKey, clientName, questionText)); err != nil {
		return wrapRemoteErr(err, "failed to delete question folder")
	}
	return nil
}

// DeleteClientTree removes a client's entire folder subtree.
func (s *FolderService) DeleteClientTree(ctx context.Context, loginKey, clientName string) error {
	if err := validateIdentity(loginKey, clientName); err != nil {
		return err
	}
	unlock := s.lock(loginKey)
	defer unlock()
	if err := s.drive.DeleteTree(ctx, s.clientPath(loginKey, clientName)); err != nil {
		return wrapRemoteErr(err, "failed to delete client folder")
	}
	return nil
}

// IsComplete reports whether a question has at least one submitted answer
// file. This feeds a progress indicator, so listing failures other than
// "folder absent" count as not complete instead of propagating.
func (s *FolderService) IsComplete(ctx context.Context, loginKey, clientName, questionText string) bool {
	answerPath := s.QuestionPath(loginKey, clientName, questionText) + "/" + answerSubfolder
	items, err := s.drive.ListChildren(ctx, answerPath)
	if err != nil {
		s.logger.Warn("completion check failed",
			zap.String("login_key", loginKey),
			zap.String("path", answerPath),
			zap.Error(err),
		)
		return false
	}
	return len(items) > 0
}
