package app

import "time"

// status is the app state reported by the /status endpoint.
type status struct {
	Builds      int       `json:"builds"`
	Reloads     int       `json:"reloads"`
	Cooks       int       `json:"cooks"`
	FailedCooks int       `json:"failed_cooks"`
	LastCook    time.Time `json:"last_cook,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
}

// statusReport is the JSON body of /status.
type statusReport struct {
	status
	SceneID  string `json:"scene_id,omitempty"`
	Nodes    int    `json:"nodes"`
	Watching bool   `json:"watching"`
}

func (a *App) statusReport() statusReport {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r := statusReport{status: a.status, Watching: a.config.Watch}
	if a.scene != nil {
		r.SceneID = a.scene.ID().String()
		r.Nodes = a.scene.Len()
	}
	return r
}

func (a *App) recordCook(failed int, lastErr error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status.Cooks++
	a.status.FailedCooks += failed
	a.status.LastCook = time.Now()
	a.status.LastError = ""
	if lastErr != nil {
		a.status.LastError = lastErr.Error()
	}
}
