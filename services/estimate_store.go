package services

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"estimatetracker/estimate"
)

// Workbook payload limits.
const (
	MinWorkbookSize = 100
	MaxWorkbookSize = 10 << 20
)

var (
	ErrMalformedPayload = errors.New("services: workbook payload is missing or not valid base64")
	ErrPayloadTooSmall  = errors.New("services: workbook payload is too small")
	ErrOversizedPayload = errors.New("services: workbook exceeds the size limit")
	ErrWorkbookMissing  = errors.New("services: workbook file not found")
)

// WorkbookStore keeps workbook bytes under string keys.
type WorkbookStore interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	Exists(key string) (bool, error)
	Delete(key string) error
}

// FilesystemStore stores workbooks in the application's configured
// filesystem (local storage dir or S3).
type FilesystemStore struct {
	App core.App
}

func (s FilesystemStore) Read(key string) ([]byte, error) {
	fsys, err := s.App.NewFilesystem()
	if err != nil {
		return nil, fmt.Errorf("open filesystem: %w", err)
	}
	defer fsys.Close()

	r, err := fsys.GetReader(key)
	if err != nil {
		if ok, exErr := fsys.Exists(key); exErr == nil && !ok {
			return nil, fmt.Errorf("%w: %s", ErrWorkbookMissing, key)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, MaxWorkbookSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if len(data) > MaxWorkbookSize {
		return nil, ErrOversizedPayload
	}
	return data, nil
}

func (s FilesystemStore) Write(key string, data []byte) error {
	fsys, err := s.App.NewFilesystem()
	if err != nil {
		return fmt.Errorf("open filesystem: %w", err)
	}
	defer fsys.Close()
	if err := fsys.Upload(data, key); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (s FilesystemStore) Exists(key string) (bool, error) {
	fsys, err := s.App.NewFilesystem()
	if err != nil {
		return false, fmt.Errorf("open filesystem: %w", err)
	}
	defer fsys.Close()
	return fsys.Exists(key)
}

func (s FilesystemStore) Delete(key string) error {
	fsys, err := s.App.NewFilesystem()
	if err != nil {
		return fmt.Errorf("open filesystem: %w", err)
	}
	defer fsys.Close()
	if err := fsys.Delete(key); err != nil {
		if ok, _ := fsys.Exists(key); !ok {
			return nil
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// EstimateFileKey returns the storage key of an estimate workbook.
func EstimateFileKey(rec *core.Record) string {
	project := rec.GetString("project")
	if project == "" {
		project = "no_project"
	}
	return "estimates/" + project + "/" + rec.Id + ".xlsx"
}

// DecodeWorkbookPayload decodes the base64 body of a save request and applies
// the size limits. A "data:...;base64," prefix is tolerated.
func DecodeWorkbookPayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if _, rest, ok := strings.Cut(payload, ";base64,"); ok && strings.HasPrefix(payload, "data:") {
		payload = rest
	}
	if payload == "" {
		return nil, ErrMalformedPayload
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxWorkbookSize+3 {
		return nil, ErrOversizedPayload
	}
	data, err := base64.StdEncoding.Strict().DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(data) < MinWorkbookSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooSmall, len(data))
	}
	if len(data) > MaxWorkbookSize {
		return nil, ErrOversizedPayload
	}
	return data, nil
}

// EstimateService ties the estimate records to their workbook files.
type EstimateService struct {
	App     core.App
	Store   WorkbookStore
	Builder *estimate.Builder
	PDF     PDFOptions
}

// NewEstimateService wires the filesystem store.
func NewEstimateService(app core.App, builder *estimate.Builder) *EstimateService {
	return &EstimateService{App: app, Store: FilesystemStore{App: app}, Builder: builder}
}

// SaveWorkbook stores raw workbook bytes for rec and updates its file
// metadata.
func (s *EstimateService) SaveWorkbook(rec *core.Record, data []byte) error {
	if len(data) > MaxWorkbookSize {
		return ErrOversizedPayload
	}
	key := EstimateFileKey(rec)
	if err := s.Store.Write(key, data); err != nil {
		return fmt.Errorf("store workbook: %w", err)
	}
	rec.Set("file_path", key)
	rec.Set("file_name", estimate.ParseType(rec.GetString("type")).FileName(rec.Id))
	rec.Set("file_size", len(data))
	rec.Set("file_updated_at", types.NowDateTime())
	if err := s.App.Save(rec); err != nil {
		return fmt.Errorf("update estimate record: %w", err)
	}
	return nil
}

// SaveDocument brings doc to a consistent state, encodes it and stores it.
func (s *EstimateService) SaveDocument(rec *core.Record, doc *estimate.Document) ([]byte, error) {
	estimate.Refresh(doc)
	data, err := EncodeWorkbook(doc)
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	if err := s.SaveWorkbook(rec, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Normalize decodes an uploaded or client-edited workbook, recalculates it
// and re-encodes it with formulas and tags re-applied.
func (s *EstimateService) Normalize(rec *core.Record, data []byte) (*estimate.Document, []byte, error) {
	doc, err := DecodeAny(data)
	if err != nil {
		return nil, nil, err
	}
	doc.Type = estimate.ParseType(rec.GetString("type"))
	estimate.Refresh(doc)
	out, err := EncodeWorkbook(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("encode workbook: %w", err)
	}
	return doc, out, nil
}

// LoadWorkbook returns the stored workbook bytes. A missing or non-xlsx
// file is replaced by a fresh template; any other read error is returned
// and the stored file is left alone.
func (s *EstimateService) LoadWorkbook(rec *core.Record) ([]byte, error) {
	if key := rec.GetString("file_path"); key != "" {
		data, err := s.Store.Read(key)
		switch {
		case err == nil && IsXLSX(data):
			return data, nil
		case err == nil:
			log.Printf("estimates: workbook %s of estimate %s is not an xlsx file, regenerating", key, rec.Id)
		case errors.Is(err, ErrWorkbookMissing):
			log.Printf("estimates: workbook %s of estimate %s is missing, regenerating", key, rec.Id)
		default:
			return nil, fmt.Errorf("read workbook %s: %w", key, err)
		}
	}
	_, data, err := s.Regenerate(rec)
	return data, err
}

// LoadDocument reads, decodes and recalculates the workbook of rec. Missing
// or corrupt files are replaced by a fresh template; storage failures are
// returned without touching the stored file.
func (s *EstimateService) LoadDocument(rec *core.Record) (*estimate.Document, error) {
	if key := rec.GetString("file_path"); key != "" {
		data, err := s.Store.Read(key)
		if err == nil {
			var doc *estimate.Document
			if doc, err = DecodeWorkbook(data); err == nil {
				doc.Type = estimate.ParseType(rec.GetString("type"))
				estimate.Refresh(doc)
				return doc, nil
			}
		}
		if !errors.Is(err, ErrWorkbookMissing) && !errors.Is(err, ErrNotWorkbook) {
			return nil, fmt.Errorf("read workbook %s: %w", key, err)
		}
		log.Printf("estimates: workbook %s of estimate %s unusable, regenerating: %v", key, rec.Id, err)
	}
	doc, _, err := s.Regenerate(rec)
	return doc, err
}

// Regenerate builds a fresh template for rec, fills the info block from its
// project and stores it.
func (s *EstimateService) Regenerate(rec *core.Record) (*estimate.Document, []byte, error) {
	doc := s.Builder.Build(estimate.ParseType(rec.GetString("type")))
	doc.Object, doc.Client = s.projectInfo(rec.GetString("project"))
	data, err := s.SaveDocument(rec, doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

const notSpecified = "Не указан"

func (s *EstimateService) projectInfo(projectID string) (object, client string) {
	object, client = notSpecified, notSpecified
	if projectID == "" {
		return
	}
	project, err := s.App.FindRecordById("projects", projectID)
	if err != nil {
		log.Printf("estimates: project %s not found for info block: %v", projectID, err)
		return
	}
	if v := strings.TrimSpace(project.GetString("address")); v != "" {
		object = v
	}
	if v := strings.TrimSpace(project.GetString("client_name")); v != "" {
		client = v
	}
	return
}

// DeleteWorkbook removes the stored file of rec, if any.
func (s *EstimateService) DeleteWorkbook(rec *core.Record) error {
	key := rec.GetString("file_path")
	if key == "" {
		return nil
	}
	return s.Store.Delete(key)
}
