package ingest

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
	"github.com/jwalitptl/carelink-api/internal/repository/mocks"
	apperrors "github.com/jwalitptl/carelink-api/pkg/errors"
	"github.com/jwalitptl/carelink-api/pkg/metrics"
)

const recording = `Coordinates
version=1
nRows=3
nColumns=3
inDegrees=no

Units are S.I. units (second, meters, Newtons, ...)
Angles are in radians.

endheader
time	knee_angle_r	pelvis_tx
0.00	0.5	0
0.01	-0.25	0
0.02	1.0	0
`

type fakeStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	uploaded  map[string][]byte
	failGet   error
	failWrite error
}

func (f *fakeStore) Download(_ context.Context, name string) ([]byte, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	data, ok := f.blobs[name]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return data, nil
}

func (f *fakeStore) Upload(_ context.Context, name string, data []byte, _ string) (string, error) {
	if f.failWrite != nil {
		return "", f.failWrite
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded[name] = data
	return "https://store.example.org/motion-files/" + name, nil
}

type fakeConverter struct {
	err   error
	calls int32
	delay time.Duration
}

func (f *fakeConverter) Convert(_ context.Context, _ string, data []byte) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(`{"asset":{"version":"2.0"}}`), nil
}

type published struct {
	room, event string
	data        interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(_ context.Context, room, event string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{room, event, data})
	return nil
}

type fixture struct {
	svc       *Service
	devices   *mocks.DeviceRepository
	files     *mocks.MotionFileRepository
	chats     *mocks.ChatRepository
	store     *fakeStore
	converter *fakeConverter
	publisher *fakePublisher
	metrics   *metrics.Metrics
}

func newFixture() *fixture {
	f := &fixture{
		devices:   &mocks.DeviceRepository{},
		files:     &mocks.MotionFileRepository{},
		chats:     &mocks.ChatRepository{},
		store:     &fakeStore{blobs: map[string][]byte{"raw.mot": []byte(recording)}, uploaded: map[string][]byte{}},
		converter: &fakeConverter{},
		publisher: &fakePublisher{},
		metrics:   metrics.NewMetrics(prometheus.NewRegistry(), "test"),
	}
	f.svc = NewService(Dependencies{
		Devices:   f.devices,
		Files:     f.files,
		Chats:     f.chats,
		Store:     f.store,
		Converter: f.converter,
		Publisher: f.publisher,
		Metrics:   f.metrics,
	})
	f.svc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC) }
	return f
}

func patientID(id int64) *int64 { return &id }

func TestIngest_HappyPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.devices.On("Get", ctx, int64(3)).Return(&model.Device{ID: 3, PatientID: patientID(7)}, nil)
	f.files.On("CreateWithReadings", ctx, mock.AnythingOfType("*model.MotionFile"), mock.AnythingOfType("[]*model.MotionReading")).
		Run(func(args mock.Arguments) {
			file := args.Get(1).(*model.MotionFile)
			file.ID = 41
			for i, r := range args.Get(2).([]*model.MotionReading) {
				r.ID = int64(i + 1)
				r.MotionFileID = 41
			}
		}).
		Return(nil)
	f.chats.On("GetByPatient", mock.Anything, int64(7)).Return(&model.Chat{ID: 9, PatientID: 7, PhysicianID: 2}, nil)

	res, err := f.svc.Ingest(ctx, Request{BlobName: "raw.mot", DeviceID: 3})
	require.NoError(t, err)

	assert.Equal(t, int64(41), res.MotionFile.ID)
	assert.Equal(t, "7_20240501T101500.000000Z.gltf", res.MotionFile.Name)
	assert.Equal(t, "https://store.example.org/motion-files/7_20240501T101500.000000Z.gltf", res.MotionFile.URL)
	assert.Equal(t, FileType, res.MotionFile.Type)
	assert.Equal(t, int64(7), res.MotionFile.PatientID)

	require.Len(t, res.Readings, 1)
	assert.Equal(t, "knee_angle_r", res.Readings[0].Name)
	assert.InDelta(t, -14.3239, res.Readings[0].Min, 1e-3)
	assert.InDelta(t, 57.2958, res.Readings[0].Max, 1e-3)
	assert.Equal(t, int64(41), res.Readings[0].MotionFileID)

	assert.Contains(t, f.store.uploaded, "7_20240501T101500.000000Z.gltf")

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, "chat:9", ev.room)
	assert.Equal(t, EventNewFile, ev.event)
	assert.Same(t, res, ev.data)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Ingestions.WithLabelValues("success", "")))
	f.devices.AssertExpectations(t)
	f.files.AssertExpectations(t)
}

func TestIngest_UnknownDevice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.devices.On("Get", ctx, int64(3)).Return(nil, repository.ErrNotFound)

	_, err := f.svc.Ingest(ctx, Request{BlobName: "raw.mot", DeviceID: 3})

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindNotFound, appErr.Kind)
	assert.Equal(t, "Device does not exist", appErr.Message)
	assert.Zero(t, f.converter.calls)
}

func TestIngest_UnassignedDevice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.devices.On("Get", ctx, int64(3)).Return(&model.Device{ID: 3}, nil)

	_, err := f.svc.Ingest(ctx, Request{BlobName: "raw.mot", DeviceID: 3})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestIngest_DownloadFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.devices.On("Get", ctx, int64(3)).Return(&model.Device{ID: 3, PatientID: patientID(7)}, nil)
	f.store.failGet = errors.New("access denied")

	_, err := f.svc.Ingest(ctx, Request{BlobName: "raw.mot", DeviceID: 3})

	assert.True(t, apperrors.IsKind(err, apperrors.KindStorage))
	assert.Zero(t, f.converter.calls)
}

func TestIngest_ConversionFailurePersistsNothing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.devices.On("Get", ctx, int64(3)).Return(&model.Device{ID: 3, PatientID: patientID(7)}, nil)
	f.converter.err = errors.New("converter returned 500")

	_, err := f.svc.Ingest(ctx, Request{BlobName: "raw.mot", DeviceID: 3})

	assert.True(t, apperrors.IsKind(err, apperrors.KindConversion))
	assert.Empty(t, f.store.uploaded)
	f.files.AssertNotCalled(t, "CreateWithReadings", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.publisher.events)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Ingestions.WithLabelValues("failure", "convert")))
}

func TestIngest_MalformedRecording(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.blobs["bad.mot"] = []byte(recording + "0.03\tabc\t0\n")
	f.devices.On("Get", ctx, int64(3)).Return(&model.Device{ID: 3, PatientID: patientID(7)}, nil)

	_, err := f.svc.Ingest(ctx, Request{BlobName: "bad.mot", DeviceID: 3})

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	f.files.AssertNotCalled(t, "CreateWithReadings", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngest_PersistFailureSkipsNotification(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.devices.On("Get", ctx, int64(3)).Return(&model.Device{ID: 3, PatientID: patientID(7)}, nil)
	f.files.On("CreateWithReadings", ctx, mock.Anything, mock.Anything).Return(errors.New("tx aborted"))

	_, err := f.svc.Ingest(ctx, Request{BlobName: "raw.mot", DeviceID: 3})

	require.Error(t, err)
	_, isApp := apperrors.As(err)
	assert.False(t, isApp)
	assert.Empty(t, f.publisher.events)
	f.chats.AssertNotCalled(t, "GetByPatient", mock.Anything, mock.Anything)
}

func TestIngest_NoChatStillSucceeds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.devices.On("Get", ctx, int64(3)).Return(&model.Device{ID: 3, PatientID: patientID(7)}, nil)
	f.files.On("CreateWithReadings", ctx, mock.Anything, mock.Anything).Return(nil)
	f.chats.On("GetByPatient", mock.Anything, int64(7)).Return(nil, repository.ErrNotFound)

	res, err := f.svc.Ingest(ctx, Request{BlobName: "raw.mot", DeviceID: 3})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, f.publisher.events)
}

func TestIngest_SerializesPerDevice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.converter.delay = 20 * time.Millisecond
	f.devices.On("Get", ctx, int64(3)).Return(&model.Device{ID: 3, PatientID: patientID(7)}, nil)
	f.chats.On("GetByPatient", mock.Anything, int64(7)).Return(nil, repository.ErrNotFound)

	var active, maxActive int32
	f.files.On("CreateWithReadings", ctx, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}).
		Return(nil)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Ingest(ctx, Request{BlobName: "raw.mot", DeviceID: 3})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.converter.calls))
}

func TestKeyedMutexHonoursContext(t *testing.T) {
	k := newKeyedMutex()
	unlock, err := k.Lock(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = k.Lock(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := k.Lock(context.Background(), 2)
	require.NoError(t, err)
	other()

	unlock()
	assert.Empty(t, k.slots)
}

func TestUploadName(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 59, 58, 0, time.FixedZone("x", 3600))
	assert.Equal(t, "12_20241231T225958.000000Z.gltf", UploadName(12, at))

	first := time.Date(2024, 5, 1, 10, 15, 0, 1000, time.UTC)
	second := first.Add(250 * time.Millisecond)
	assert.Equal(t, "12_20240501T101500.000001Z.gltf", UploadName(12, first))
	assert.NotEqual(t, UploadName(12, first), UploadName(12, second))
}

func TestIngest_NotifiesAfterCallerCancels(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.devices.On("Get", ctx, int64(3)).Return(&model.Device{ID: 3, PatientID: patientID(7)}, nil)
	f.files.On("CreateWithReadings", ctx, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.MotionFile).ID = 41
			cancel()
		}).
		Return(nil)
	live := mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil })
	f.chats.On("GetByPatient", live, int64(7)).Return(&model.Chat{ID: 9, PatientID: 7, PhysicianID: 2}, nil)

	res, err := f.svc.Ingest(ctx, Request{BlobName: "raw.mot", DeviceID: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(41), res.MotionFile.ID)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, EventNewFile, f.publisher.events[0].event)
	f.chats.AssertExpectations(t)
}
