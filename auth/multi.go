/*
Copyright The engine-go Authors.
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

package auth

import (
	"context"

	"github.com/containerd/log"
)

// multi is a Supplier delegating to an ordered list of suppliers.
type multi struct {
	suppliers []Supplier
}

// Multi returns a Supplier consulting suppliers in order.
//
// Image and swarm requests return the first non-nil credential; later
// suppliers are not invoked. Build requests merge the maps of every
// supplier, where an earlier supplier wins for a registry present in more
// than one map. Nil suppliers are skipped.
func Multi(suppliers ...Supplier) Supplier {
	var ss []Supplier
	for _, s := range suppliers {
		if s != nil {
			ss = append(ss, s)
		}
	}
	return &multi{suppliers: ss}
}

func (m *multi) AuthForImage(ctx context.Context, image string) (*Credential, error) {
	for i, s := range m.suppliers {
		cred, err := s.AuthForImage(ctx, image)
		if err != nil {
			return nil, err
		}
		if cred != nil {
			log.G(ctx).WithField("image", image).WithField("supplier", i).Debug("image credential found")
			return cred, nil
		}
	}
	return nil, nil
}

func (m *multi) AuthForSwarm(ctx context.Context) (*Credential, error) {
	for i, s := range m.suppliers {
		cred, err := s.AuthForSwarm(ctx)
		if err != nil {
			return nil, err
		}
		if cred != nil {
			log.G(ctx).WithField("supplier", i).Debug("swarm credential found")
			return cred, nil
		}
	}
	return nil, nil
}

func (m *multi) AuthForBuild(ctx context.Context) (CredentialMap, error) {
	maps := make([]CredentialMap, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		creds, err := s.AuthForBuild(ctx)
		if err != nil {
			return nil, err
		}
		maps = append(maps, creds)
	}
	return Merge(maps...), nil
}

// Merge combines maps in precedence order: a registry takes its credential
// from the first map that has it. Nil maps are skipped. The result is never
// nil.
func Merge(maps ...CredentialMap) CredentialMap {
	merged := CredentialMap{}
	for _, m := range maps {
		for k, v := range m {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	return merged
}
