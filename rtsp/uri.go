/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package rtsp

import (
	"fmt"
	"net/url"
)

// parseRequestURI extracts and percent-decodes the path component of an
// RTSP request URI, e.g. "rtsp://host/by-name/Anubis%20610120" ->
// "/by-name/Anubis 610120".
func parseRequestURI(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("rtsp: bad request URI %q: %w", raw, err)
	}
	if u.Path == "" {
		return "", fmt.Errorf("rtsp: request URI %q has no path", raw)
	}
	return u.Path, nil
}
