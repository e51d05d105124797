// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package validation

import (
	"fmt"
)

const (
	topicNamePattern   = `^[a-zA-Z0-9._-]+$`
	maxTopicNameLength = 249
)

type topicNameValidator struct {
	name string
}

var _ Validator = (*topicNameValidator)(nil)

// NewTopicNameValidator checks a topic name against the character set and the
// length accepted by the legacy store layout. "." and ".." are rejected since
// they collide with path segments.
func NewTopicNameValidator(name string) Validator {
	return &topicNameValidator{name: name}
}

func (v topicNameValidator) Validate() error {
	invalid := fmt.Errorf("invalid topic name %q", v.name)
	return New(FailFast()).
		AddValidator(NewEmptyStringValidator("topic", v.name)).
		AddAssertion(len(v.name) <= maxTopicNameLength, fmt.Sprintf("topic name %q is longer than %d characters", v.name, maxTopicNameLength)).
		AddAssertion(v.name != "." && v.name != "..", invalid.Error()).
		AddValidator(NewPatternValidator(topicNamePattern, v.name, invalid)).
		Validate()
}
