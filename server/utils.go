package server

import (
	"encoding/json"
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"labcomm/registry"
	"labcomm/utils"
	"mime"
	"net/http"
	"net/url"
)

func sendJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(utils.ToJson(value))
}

func sendError(w http.ResponseWriter, errorCode int, message string) {
	log.Info(message)
	sendJSON(w, errorCode, map[string]string{
		"error": message,
	})
}

// sendRegistryError maps the registry error taxonomy onto HTTP statuses.
func sendRegistryError(w http.ResponseWriter, err error) {
	var (
		notFound   *registry.NotFoundError
		permission *registry.PermissionError
		validation *registry.ValidationError
		conflict   *registry.ConflictError
	)
	switch {
	case errors.As(err, &notFound):
		sendError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &permission):
		sendError(w, http.StatusForbidden, "forbidden")
	case errors.As(err, &validation):
		sendError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &conflict):
		sendError(w, http.StatusConflict, err.Error())
	default:
		log.Errorf("Unexpected registry error: %v", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
	}
}

func getFormItem(values url.Values, key string) string {
	value := values[key]
	result := ""
	if len(value) == 1 {
		result = value[0]
	}
	return result
}

// readPostInput accepts either a JSON document or a regular form submission.
func readPostInput(w http.ResponseWriter, r *http.Request) (registry.PostInput, error) {
	var input registry.PostInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
		if err := decoder.Decode(&input); err != nil {
			return input, fmt.Errorf("invalid JSON body: %w", err)
		}
		return input, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return input, fmt.Errorf("invalid form body: %w", err)
	}
	input.Title = getFormItem(r.PostForm, "title")
	input.Slug = getFormItem(r.PostForm, "slug")
	input.Link = getFormItem(r.PostForm, "link")
	return input, nil
}
