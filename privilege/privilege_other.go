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

//go:build !linux && !darwin && !windows

package privilege

import (
	"errors"

	"github.com/chevah/compat"
)

var errNotSupported = errors.New("privilege: " + compat.NotImplemented)

type osSwitcher struct{}

func newOsSwitcher() Switcher {
	return &osSwitcher{}
}

func (sw *osSwitcher) Current() compat.Identity {
	return compat.Identity{}
}

func (sw *osSwitcher) ProcessDefault() compat.Identity {
	return compat.Identity{}
}

func (sw *osSwitcher) ThreadLocal() bool {
	return false
}

func (sw *osSwitcher) Switch(id compat.Identity) error {
	return errNotSupported
}
