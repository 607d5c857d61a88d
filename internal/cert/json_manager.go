package cert

import (
	"encoding/json"
	"fmt"
	"os"
)

// jsonCredentials is the on-disk shape of the credentials file: a JSON
// object mapping domain to {uid, pw}.
type jsonCredentials map[string]struct {
	UID string `json:"uid"`
	PW  string `json:"pw"`
}

// LoadJSON reads a domain -> {uid, pw} JSON credentials file and returns
// it as a Static Manager.
func LoadJSON(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var creds jsonCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials file: %w", err)
	}

	out := make(Static, len(creds))
	for domain, pair := range creds {
		out[domain] = LoginPair{UID: pair.UID, Password: pair.PW}
	}
	return out, nil
}
