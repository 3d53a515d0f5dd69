//
//  Copyright 2023 The compat authors
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//  	http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package compat

// Authenticator checks credentials against an ordered list of backends:
// typically the platform native store, then a secondary (shadow) store, then
// PAM when available. The first backend with a definitive answer wins; a
// backend returning DecisionUnknown delegates to the next one.
//
// A definitive reject from an earlier backend is final: PAM is never
// consulted to override an explicit rejection from the native store.
type Authenticator struct {
	backends []CredentialBackend
}

// NewAuthenticator returns an Authenticator trying backends in the given
// precedence order. Nil backends (absent optional capabilities such as a
// missing PAM module) are skipped.
func NewAuthenticator(backends ...CredentialBackend) *Authenticator {
	auth := &Authenticator{}

	for _, b := range backends {
		if b != nil {
			auth.backends = append(auth.backends, b)
		}
	}

	return auth
}

// Backends returns the names of the configured backends in precedence order.
func (auth *Authenticator) Backends() []string {
	names := make([]string, 0, len(auth.backends))
	for _, b := range auth.backends {
		names = append(names, b.Name())
	}

	return names
}

// Authenticate checks username and password against each backend in order.
// It returns DecisionUnknown when no backend has an opinion, so callers can
// distinguish a hard failure from a deliberate rejection.
func (auth *Authenticator) Authenticate(username, password string) (Decision, Token, error) {
	logger := Logger("auth")

	for _, b := range auth.backends {
		decision, token, err := b.Authenticate(username, password)
		if err != nil {
			logger.Warn().
				Str("backend", b.Name()).
				Str("username", username).
				Err(err).
				Msg("credential backend failure")

			continue
		}

		if decision != DecisionUnknown {
			logger.Debug().
				Str("backend", b.Name()).
				Str("username", username).
				Stringer("decision", decision).
				Msg("credentials checked")

			return decision, token, nil
		}
	}

	return DecisionUnknown, NoToken, nil
}

// UserExists returns true as soon as one backend knows the account.
// Backend failures are treated as "not found", never as errors.
func (auth *Authenticator) UserExists(username string) bool {
	if username == "" {
		return false
	}

	for _, b := range auth.backends {
		ok, err := b.Exists(username)
		if err != nil {
			continue
		}

		if ok {
			return true
		}
	}

	return false
}
