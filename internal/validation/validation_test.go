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
	"testing"

	"github.com/stretchr/testify/suite"
)

type validationTestSuite struct {
	suite.Suite
}

func TestValidation(t *testing.T) {
	suite.Run(t, new(validationTestSuite))
}

func (s *validationTestSuite) TestNewChain() {
	s.Run("new chain without option", func() {
		chain := New()
		s.Assert().NotNil(chain)
		s.Assert().False(chain.failFast)
	})
	s.Run("new chain with options", func() {
		s.Assert().True(New(FailFast()).failFast)
		s.Assert().False(New(AllErrors()).failFast)
	})
}

func (s *validationTestSuite) TestValidate() {
	s.Run("with single validator", func() {
		err := New().AddValidator(NewEmptyStringValidator("field", " ")).Validate()
		s.Assert().EqualError(err, "the [field] is required")
	})
	s.Run("with FailFast option", func() {
		chain := New(FailFast()).
			AddValidator(NewEmptyStringValidator("field", "")).
			AddAssertion(false, "this is false")
		err := chain.Validate()
		s.Assert().EqualError(err, "the [field] is required")
	})
	s.Run("validating twice reports the same violations", func() {
		chain := New().
			AddValidator(NewEmptyStringValidator("field", "")).
			AddAssertion(false, "this is false")
		first := chain.Validate()
		s.Assert().EqualError(first, "the [field] is required; this is false")
		s.Assert().EqualError(chain.Validate(), first.Error())
	})
	s.Run("chains nest", func() {
		err := New(FailFast()).
			AddValidator(New().AddAssertion(false, "inner")).
			AddAssertion(false, "outer").
			Validate()
		s.Assert().EqualError(err, "inner")
	})
	s.Run("with AllErrors option", func() {
		err := New(AllErrors()).
			AddValidator(NewEmptyStringValidator("field", "")).
			AddAssertion(false, "this is false").
			Validate()
		s.Assert().EqualError(err, "the [field] is required; this is false")
	})
	s.Run("with no violation", func() {
		err := New().
			AddValidator(NewEmptyStringValidator("field", "value")).
			AddAssertion(true, "unused").
			Validate()
		s.Assert().NoError(err)
	})
}

func (s *validationTestSuite) TestBooleanValidator() {
	s.Assert().NoError(NewBooleanValidator(true, "error message").Validate())
	s.Assert().EqualError(NewBooleanValidator(false, "error message").Validate(), "error message")
}

func (s *validationTestSuite) TestPatternValidator() {
	s.Assert().NoError(NewPatternValidator(`^[a-z]+$`, "abc", nil).Validate())
	s.Assert().EqualError(NewPatternValidator(`^[a-z]+$`, "ABC", nil).Validate(), "invalid expression")
}
