package utils

import (
	"encoding/json"
	log "github.com/sirupsen/logrus"
	"runtime/debug"
	"strconv"
)

func IntFromString(s string, defaultValue int) int {
	atoi, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return atoi
}

func ToJson(value any) []byte {
	jsonResp, err := json.Marshal(value)
	if err != nil {
		log.Errorf("Error happened in JSON marshal. Err: %s", err)
	}
	return jsonResp
}

// Recoverer runs f and reports whether it panicked. The panic value and stack
// are logged under the given name.
func Recoverer(name string, f func()) (panicked bool) {
	defer func() {
		if err := recover(); err != nil {
			log.WithField("stack", string(debug.Stack())).Errorf("Recovered panic in %s: %v", name, err)
			panicked = true
		}
	}()
	f()
	return false
}
