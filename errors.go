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
	"errors"
	"strconv"
)

// EventID identifies a stable error condition of the compatibility layer.
// The numeric values are part of the public contract and must never change.
type EventID int

const (
	EventBrokenVirtualPath      EventID = 1004 // virtual folder maps to an unusable real path.
	EventOverlappingVirtualPath EventID = 1005 // virtual folder shadows an existing real entry.
	EventImpersonationFailed    EventID = 1006 // identity switch or authentication failure.
	EventVirtualPathReadOnly    EventID = 1007 // mutation attempted on a virtual path.
	EventDeleteRootForbidden    EventID = 1009 // refusing to delete the file system root.
	EventUnknownGroupRemoval    EventID = 1013 // unknown group on group removal.
	EventHomeFolderFailed       EventID = 1014 // home folder could not be retrieved.
	EventPrimaryGroupFailed     EventID = 1015 // primary group could not be resolved.
	EventSetOwnerFailed         EventID = 1016 // owner could not be set.
	EventAddGroupFailed         EventID = 1017 // group could not be added.
	EventUserCheckFailed        EventID = 1018 // user existence check or path confinement failure.
)

// CompatError is a layer invariant violation carrying a stable event id, a
// human readable message and optional recovered detail text from the
// underlying cause.
type CompatError struct {
	ID      EventID
	Message string
	Details string
}

// NewCompatError returns a CompatError with the given id and message.
func NewCompatError(id EventID, message string) *CompatError {
	return &CompatError{ID: id, Message: message}
}

// WithDetails returns a copy of the error with recovered detail text attached.
func (e *CompatError) WithDetails(details string) *CompatError {
	ce := *e
	ce.Details = details

	return &ce
}

func (e *CompatError) Error() string {
	s := "compat error " + strconv.Itoa(int(e.ID)) + " - " + e.Message
	if e.Details != "" {
		s += " (" + e.Details + ")"
	}

	return s
}

// Is makes errors.Is match two CompatErrors with the same event id.
func (e *CompatError) Is(target error) bool {
	var ce *CompatError
	if !errors.As(target, &ce) {
		return false
	}

	return e.ID == ce.ID
}

// IsCompatError returns true when err is a CompatError with the given id.
func IsCompatError(err error, id EventID) bool {
	var ce *CompatError

	return errors.As(err, &ce) && ce.ID == id
}

// InvalidArgumentError is returned when a caller supplied argument fails
// validation before any OS call is attempted.
type InvalidArgumentError string

func (e InvalidArgumentError) Error() string {
	return string(e)
}

// AlreadyExistsGroupError is returned when the group name already exists.
type AlreadyExistsGroupError string

func (e AlreadyExistsGroupError) Error() string {
	return "group: group " + string(e) + " already exists"
}

// AlreadyExistsUserError is returned when the user name already exists.
type AlreadyExistsUserError string

func (e AlreadyExistsUserError) Error() string {
	return "user: user " + string(e) + " already exists"
}

// UnknownGroupError is returned by LookupGroup when a group cannot be found.
type UnknownGroupError string

func (e UnknownGroupError) Error() string {
	return "group: unknown group " + string(e)
}

// UnknownGroupIdError is returned by LookupGroupId when a group cannot be found.
type UnknownGroupIdError int

func (e UnknownGroupIdError) Error() string {
	return "group: unknown groupid " + strconv.Itoa(int(e))
}

// UnknownUserError is returned by LookupUser when a user cannot be found.
type UnknownUserError string

func (e UnknownUserError) Error() string {
	return "user: unknown user " + string(e)
}

// UnknownUserIdError is returned by LookupUserId when a user cannot be found.
type UnknownUserIdError int

func (e UnknownUserIdError) Error() string {
	return "user: unknown userid " + strconv.Itoa(int(e))
}
