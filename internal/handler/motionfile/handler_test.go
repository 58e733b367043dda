package motionfile

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/carelink-api/internal/handler/handlertest"
	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
	"github.com/jwalitptl/carelink-api/internal/repository/mocks"
	"github.com/jwalitptl/carelink-api/internal/service/motionfile"
)

type blobs struct {
	deleted []string
	err     error
}

func (b *blobs) Delete(_ context.Context, name string) error {
	b.deleted = append(b.deleted, name)
	return b.err
}

func setup() (*mocks.MotionFileRepository, *mocks.UserRepository, *blobs, http.Handler) {
	files, users, store := new(mocks.MotionFileRepository), new(mocks.UserRepository), &blobs{}
	h := NewHandler(motionfile.NewService(files, users, store), handlertest.Auth())
	return files, users, store, handlertest.Engine(h)
}

func TestRequiresClinicalRole(t *testing.T) {
	_, _, _, r := setup()

	w := handlertest.Do(r, http.MethodGet, "/motion_files", handlertest.AdminToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = handlertest.Do(r, http.MethodGet, "/motion_readings/1", handlertest.NoRoleToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateMissingFields(t *testing.T) {
	_, _, _, r := setup()

	w := handlertest.Do(r, http.MethodPost, "/motion_files/create", handlertest.PhysicianToken, map[string]interface{}{
		"url": "https://files.example.org/a.gltf",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing required fields: url, file_name, type, and/or email"}`, w.Body.String())
}

func TestCreateUnknownEmail(t *testing.T) {
	_, users, _, r := setup()
	users.On("GetByEmail", mock.Anything, "nobody@example.org").Return(nil, repository.ErrNotFound)

	w := handlertest.Do(r, http.MethodPost, "/motion_files/create", handlertest.PhysicianToken, map[string]interface{}{
		"url":   "https://files.example.org/a.gltf",
		"name":  "a.gltf",
		"type":  "gltf",
		"email": "nobody@example.org",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"No patient found with email: nobody@example.org"}`, w.Body.String())
}

func TestAssignMissingPatient(t *testing.T) {
	_, _, _, r := setup()

	w := handlertest.Do(r, http.MethodPut, "/motion_files/1/assign", handlertest.PhysicianToken, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing required fields: patient_id"}`, w.Body.String())
}

func TestGetMissing(t *testing.T) {
	files, _, _, r := setup()
	files.On("Get", mock.Anything, int64(4)).Return(nil, repository.ErrNotFound)

	w := handlertest.Do(r, http.MethodGet, "/motion_files/4", handlertest.PatientToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"Motion_File does not exist"}`, w.Body.String())
}

func TestListByPatientEmpty(t *testing.T) {
	files, _, _, r := setup()
	files.On("ListByPatient", mock.Anything, int64(7)).Return([]*model.MotionFile{}, nil)

	w := handlertest.Do(r, http.MethodGet, "/motion_files/patient/7", handlertest.PatientToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"No motion_file assigned to this patient"}`, w.Body.String())
}

func TestDeleteRemovesBlobFirst(t *testing.T) {
	files, _, store, r := setup()
	files.On("Get", mock.Anything, int64(1)).Return(&model.MotionFile{ID: 1, Name: "a.gltf"}, nil)
	files.On("Delete", mock.Anything, int64(1)).Return(nil)

	w := handlertest.Do(r, http.MethodDelete, "/motion_files/delete/1", handlertest.PhysicianToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Motion_File deleted successfully"}`, w.Body.String())
	assert.Equal(t, []string{"a.gltf"}, store.deleted)
}

func TestDeleteKeepsRowWhenBlobFails(t *testing.T) {
	files, _, store, r := setup()
	store.err = errors.New("access denied")
	files.On("Get", mock.Anything, int64(1)).Return(&model.MotionFile{ID: 1, Name: "a.gltf"}, nil)

	w := handlertest.Do(r, http.MethodDelete, "/motion_files/delete/1", handlertest.PhysicianToken, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	files.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestReadings(t *testing.T) {
	files, _, _, r := setup()
	files.On("ListReadings", mock.Anything, int64(1)).Return([]*model.MotionReading{
		{ID: 1, Name: "Hips", MotionFileID: 1, Min: -10, Max: 42.5},
	}, nil)

	w := handlertest.Do(r, http.MethodGet, "/motion_readings/1", handlertest.PatientToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":1,"name":"Hips","motion_file_id":1,"min":-10,"max":42.5}]`, w.Body.String())
}
