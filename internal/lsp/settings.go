package lsp

import (
	"encoding/json"

	"juvixmode/internal/abbrev"
	"juvixmode/internal/config"
)

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	s.applySettings(params.Settings)
	return nil
}

// applySettings merges a juvix-mode settings object into the current
// settings. Invalid settings are reported and leave everything unchanged.
func (s *Server) applySettings(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	overlay, err := config.ParseOverlay(raw)
	if err != nil {
		s.logf("ignoring settings: %v", err)
		return
	}
	s.mu.Lock()
	next, err := s.settings.Apply(overlay)
	if err != nil {
		s.mu.Unlock()
		s.showMessage(messageError, "juvix-mode settings: "+err.Error())
		return
	}
	var table *abbrev.Table
	if overlay.Input != nil {
		table, err = abbrev.New(next.Input.CustomTranslations)
		if err != nil {
			s.logf("custom translations ignored: %v", err)
			table = nil
		}
	}
	s.settings = next
	s.settingsGen++
	s.client = s.newClient(next)
	s.versionMemo = ""
	s.globalMemo = ""
	if table != nil {
		s.abbrevs = table
	}
	s.mu.Unlock()
	s.probes.Forget(probeVersion)
	s.probes.Forget(probeGlobalRoot)
	s.debugf("settings applied: exec=%s typecheckOn=%s", next.JuvixExec(), next.TypecheckOn)
}
