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

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// The layer is a library: it stays silent unless the embedding service
// installs a logger with SetLogger.
var rootLogger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	rootLogger.Store(&nop)
}

// SetLogger installs the logger used by all components.
func SetLogger(logger zerolog.Logger) {
	rootLogger.Store(&logger)
}

// Logger returns a logger tagged with the given component name.
func Logger(component string) zerolog.Logger {
	return rootLogger.Load().With().Str("component", component).Logger()
}
