// Package ingest turns a raw motion capture recording uploaded by a device
// into a viewable motion file with per-channel range readings, and tells the
// patient's chat about it.
package ingest

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/motion"
	"github.com/jwalitptl/carelink-api/internal/repository"
	"github.com/jwalitptl/carelink-api/pkg/errors"
	"github.com/jwalitptl/carelink-api/pkg/metrics"
	"github.com/jwalitptl/carelink-api/pkg/realtime"
)

const (
	FileType        = "gltf"
	gltfContentType = "model/gltf+json"
	EventNewFile    = "new_file"

	notifyTimeout = 5 * time.Second

	stageResolve  = "resolve"
	stageDownload = "download"
	stageConvert  = "convert"
	stageUpload   = "upload"
	stageExtract  = "extract"
	stagePersist  = "persist"
)

type BlobStore interface {
	Download(ctx context.Context, name string) ([]byte, error)
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

type Converter interface {
	Convert(ctx context.Context, filename string, data []byte) ([]byte, error)
}

type Extractor interface {
	Extract(data []byte) ([]motion.ChannelRange, error)
}

type Request struct {
	BlobName string `json:"blob_name" binding:"required,notblank"`
	DeviceID int64  `json:"device_id" binding:"required,gt=0"`
}

// Result is both the ingest response and the new_file event payload.
type Result struct {
	MotionFile *model.MotionFile      `json:"motion_file"`
	Readings   []*model.MotionReading `json:"motion_readings"`
}

type IngestServicer interface {
	Ingest(ctx context.Context, req Request) (*Result, error)
}

type Dependencies struct {
	Devices   repository.DeviceRepository
	Files     repository.MotionFileRepository
	Chats     repository.ChatRepository
	Store     BlobStore
	Converter Converter
	Extractor Extractor
	Publisher realtime.Publisher
	Metrics   *metrics.Metrics
}

type Service struct {
	Dependencies
	locks *keyedMutex
	now   func() time.Time
}

func NewService(deps Dependencies) *Service {
	if deps.Extractor == nil {
		deps.Extractor = motion.NewExtractor(motion.DefaultHeaderLine)
	}
	return &Service{
		Dependencies: deps,
		locks:        newKeyedMutex(),
		now:          time.Now,
	}
}

// UploadName is the blob name of the converted artifact. Uploads overwrite,
// so the timestamp keeps microseconds.
func UploadName(patientID int64, at time.Time) string {
	return fmt.Sprintf("%d_%s.gltf", patientID, at.UTC().Format("20060102T150405.000000Z"))
}

// Ingest runs the pipeline for one recording. Ingestions for the same
// device run one at a time. The converted blob is not removed when a later
// step fails.
func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	logger := log.With().Str("blob", req.BlobName).Int64("device_id", req.DeviceID).Logger()

	unlock, err := s.locks.Lock(ctx, req.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("waiting for device %d: %w", req.DeviceID, err)
	}
	defer unlock()

	result, stage, err := s.run(ctx, req)
	s.Metrics.IngestionDone(stage, len(readingsOf(result)), start, err)
	if err != nil {
		logger.Error().Err(err).Str("stage", stage).Msg("Motion file ingestion failed")
		return nil, err
	}

	logger.Info().
		Int64("motion_file_id", result.MotionFile.ID).
		Int("readings", len(result.Readings)).
		Dur("duration", time.Since(start)).
		Msg("Motion file ingested")

	s.notify(ctx, result)
	return result, nil
}

func (s *Service) run(ctx context.Context, req Request) (*Result, string, error) {
	t := time.Now()
	device, err := s.Devices.Get(ctx, req.DeviceID)
	if err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, stageResolve, errors.NotFound("Device")
		}
		return nil, stageResolve, fmt.Errorf("failed to get device: %w", err)
	}
	if !device.Assigned() {
		return nil, stageResolve, errors.Missing(fmt.Sprintf("No patient assigned to device %d", device.ID))
	}
	patientID := *device.PatientID
	s.Metrics.ObserveStage(stageResolve, t)

	t = time.Now()
	raw, err := s.Store.Download(ctx, req.BlobName)
	if err != nil {
		return nil, stageDownload, errors.Storage("download", err)
	}
	s.Metrics.ObserveStage(stageDownload, t)

	t = time.Now()
	converted, err := s.Converter.Convert(ctx, req.BlobName, raw)
	if err != nil {
		return nil, stageConvert, errors.Conversion(err)
	}
	s.Metrics.ObserveStage(stageConvert, t)

	t = time.Now()
	name := UploadName(patientID, s.now())
	url, err := s.Store.Upload(ctx, name, converted, gltfContentType)
	if err != nil {
		return nil, stageUpload, errors.Storage("upload", err)
	}
	s.Metrics.ObserveStage(stageUpload, t)

	t = time.Now()
	ranges, err := s.Extractor.Extract(raw)
	if err != nil {
		log.Warn().Str("blob", name).Msg("Converted blob left in storage after extraction failure")
		return nil, stageExtract, errors.Validation(fmt.Sprintf("Motion file could not be parsed: %v", err))
	}
	s.Metrics.ObserveStage(stageExtract, t)

	file := &model.MotionFile{
		Name:      name,
		URL:       url,
		Type:      FileType,
		PatientID: patientID,
	}
	readings := make([]*model.MotionReading, len(ranges))
	for i, r := range ranges {
		readings[i] = &model.MotionReading{Name: r.Name, Min: r.Min, Max: r.Max}
	}

	t = time.Now()
	if err := s.Files.CreateWithReadings(ctx, file, readings); err != nil {
		log.Warn().Str("blob", name).Msg("Converted blob left in storage after persist failure")
		return nil, stagePersist, fmt.Errorf("failed to persist motion file: %w", err)
	}
	s.Metrics.ObserveStage(stagePersist, t)

	return &Result{MotionFile: file, Readings: readings}, "", nil
}

// notify is best effort: the file is already committed. It outlives the
// caller's context so a dropped request still announces the file.
func (s *Service) notify(parent context.Context, result *Result) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), notifyTimeout)
	defer cancel()

	patientID := result.MotionFile.PatientID

	chat, err := s.Chats.GetByPatient(ctx, patientID)
	if err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			log.Info().Int64("patient_id", patientID).Msg("Patient has no chat, skipping new_file event")
			return
		}
		log.Error().Err(err).Int64("patient_id", patientID).Msg("Failed to look up chat for new_file event")
		return
	}

	if err := s.Publisher.Publish(ctx, chat.Room(), EventNewFile, result); err != nil {
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to publish new_file event")
		return
	}
	s.Metrics.EventPublished(EventNewFile)
}

func readingsOf(r *Result) []*model.MotionReading {
	if r == nil {
		return nil
	}
	return r.Readings
}
