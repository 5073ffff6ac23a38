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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSupplier returns canned answers and counts how often it is asked.
type countingSupplier struct {
	image *Credential
	swarm *Credential
	build CredentialMap
	err   error

	imageCalls int
	swarmCalls int
	buildCalls int
}

func (s *countingSupplier) AuthForImage(context.Context, string) (*Credential, error) {
	s.imageCalls++
	return s.image, s.err
}

func (s *countingSupplier) AuthForSwarm(context.Context) (*Credential, error) {
	s.swarmCalls++
	return s.swarm, s.err
}

func (s *countingSupplier) AuthForBuild(context.Context) (CredentialMap, error) {
	s.buildCalls++
	return s.build, s.err
}

func TestMulti_AuthForImage_firstMatch(t *testing.T) {
	r1 := &Credential{Username: "r1"}
	a := &countingSupplier{}
	b := &countingSupplier{image: r1}
	c := &countingSupplier{image: &Credential{Username: "r2"}}

	got, err := Multi(a, b, c).AuthForImage(context.Background(), "busybox")
	require.NoError(t, err)
	assert.Same(t, r1, got)
	assert.Equal(t, 1, a.imageCalls)
	assert.Equal(t, 1, b.imageCalls)
	assert.Equal(t, 0, c.imageCalls, "suppliers after the first match are not invoked")
}

func TestMulti_AuthForImage_none(t *testing.T) {
	a := &countingSupplier{}
	b := &countingSupplier{}
	got, err := Multi(a, nil, b).AuthForImage(context.Background(), "busybox")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, a.imageCalls)
	assert.Equal(t, 1, b.imageCalls)
}

func TestMulti_AuthForImage_error(t *testing.T) {
	boom := errors.New("boom")
	a := &countingSupplier{err: boom}
	b := &countingSupplier{image: &Credential{Username: "r1"}}
	_, err := Multi(a, b).AuthForImage(context.Background(), "busybox")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, b.imageCalls)
}

func TestMulti_AuthForSwarm(t *testing.T) {
	s1 := &Credential{Username: "s1"}
	a := &countingSupplier{}
	b := &countingSupplier{swarm: s1}
	c := &countingSupplier{swarm: &Credential{Username: "s2"}}

	got, err := Multi(a, b, c).AuthForSwarm(context.Background())
	require.NoError(t, err)
	assert.Same(t, s1, got)
	assert.Equal(t, 0, c.swarmCalls)
}

func TestMulti_AuthForBuild_precedence(t *testing.T) {
	x := Credential{Username: "X"}
	y := Credential{Username: "Y"}
	z := Credential{Username: "Z"}
	w := Credential{Username: "W"}
	first := &countingSupplier{build: CredentialMap{"a": x, "b": y}}
	skipped := &countingSupplier{}
	second := &countingSupplier{build: CredentialMap{"a": z, "c": w}}

	got, err := Multi(first, skipped, second).AuthForBuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CredentialMap{"a": x, "b": y, "c": w}, got)
	assert.Equal(t, 1, first.buildCalls)
	assert.Equal(t, 1, skipped.buildCalls)
	assert.Equal(t, 1, second.buildCalls)
}

func TestMulti_AuthForBuild_empty(t *testing.T) {
	got, err := Multi().AuthForBuild(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMulti_AuthForBuild_error(t *testing.T) {
	boom := errors.New("boom")
	_, err := Multi(&countingSupplier{}, &countingSupplier{err: boom}).AuthForBuild(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestMerge(t *testing.T) {
	assert.Equal(t, CredentialMap{}, Merge())
	assert.Equal(t, CredentialMap{"a": {Username: "1"}}, Merge(nil, CredentialMap{"a": {Username: "1"}}, CredentialMap{"a": {Username: "2"}}))
}

func TestFixed(t *testing.T) {
	cred := &Credential{Username: "alice", Password: "s3cret", ServerAddress: "registry.example.com"}
	s := Fixed(cred, nil)

	got, err := s.AuthForImage(context.Background(), "busybox")
	require.NoError(t, err)
	assert.Equal(t, cred, got)
	got.Username = "mallory"
	again, _ := s.AuthForSwarm(context.Background())
	assert.Equal(t, "alice", again.Username, "callers receive copies")

	build, err := s.AuthForBuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CredentialMap{"registry.example.com": *cred}, build)
}

func TestFixed_nil(t *testing.T) {
	s := Fixed(nil, nil)
	got, err := s.AuthForImage(context.Background(), "busybox")
	require.NoError(t, err)
	assert.Nil(t, got)
	build, err := s.AuthForBuild(context.Background())
	require.NoError(t, err)
	assert.Nil(t, build)
}

func TestFixed_buildMap(t *testing.T) {
	build := CredentialMap{"registry.example.com": {Username: "builder"}}
	s := Fixed(&Credential{Username: "alice"}, build)
	got, err := s.AuthForBuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, build, got)
}
