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

package secret

import (
	"strings"

	"github.com/zpllz/kafka/record"
)

// Sensitivity tells whether a config key holds a secret.
type Sensitivity func(resourceType record.ResourceType, key string) bool

var sensitiveKeys = map[string]struct{}{
	"sasl.jaas.config":                    {},
	"sasl.oauthbearer.token.endpoint.url": {},
	"ssl.key.password":                    {},
	"ssl.keystore.key":                    {},
	"ssl.keystore.password":               {},
	"ssl.truststore.password":             {},
	"delegation.token.secret.key":         {},
	"password.encoder.secret":             {},
	"password.encoder.old.secret":         {},
}

// DefaultSensitivity flags the well known secret keys, any key ending in
// ".password" and any listener scoped variant of them.
func DefaultSensitivity(_ record.ResourceType, key string) bool {
	if _, ok := sensitiveKeys[key]; ok {
		return true
	}

	if strings.HasSuffix(key, ".password") || strings.HasSuffix(key, "sasl.jaas.config") {
		return true
	}
	return false
}
