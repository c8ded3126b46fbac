package client

// ServerAPI groups the server management endpoints.
type ServerAPI struct {
	m *Manager
}

// Echo returns the server's version string.
func (s *ServerAPI) Echo() (string, error) {
	body, err := s.m.get("echo", nil)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

func (s *ServerAPI) Shutdown() (string, error) {
	body, err := s.m.get("shutdown", nil)
	if err != nil {
		return "", err
	}

	return string(body), nil
}
