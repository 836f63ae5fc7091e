package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mockhire/mockhire/pkg/microphone"
	"github.com/mockhire/mockhire/pkg/voicecall"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	voice      map[string]func(VoiceConfig) (voicecall.Client, error)
	microphone map[string]func(MicrophoneConfig) (microphone.Requester, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		voice:      make(map[string]func(VoiceConfig) (voicecall.Client, error)),
		microphone: make(map[string]func(MicrophoneConfig) (microphone.Requester, error)),
	}
}

// RegisterVoice registers a voice-call client factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterVoice(name string, factory func(VoiceConfig) (voicecall.Client, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voice[name] = factory
}

// RegisterMicrophone registers a microphone requester factory under name.
func (r *Registry) RegisterMicrophone(name string, factory func(MicrophoneConfig) (microphone.Requester, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.microphone[name] = factory
}

// CreateVoice instantiates the voice-call client registered under
// cfg.Provider. Returns [ErrProviderNotRegistered] if there is none.
func (r *Registry) CreateVoice(cfg VoiceConfig) (voicecall.Client, error) {
	r.mu.RLock()
	factory, ok := r.voice[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: voice/%q", ErrProviderNotRegistered, cfg.Provider)
	}
	return factory(cfg)
}

// CreateMicrophone instantiates the microphone requester registered under
// cfg.Provider.
func (r *Registry) CreateMicrophone(cfg MicrophoneConfig) (microphone.Requester, error) {
	r.mu.RLock()
	factory, ok := r.microphone[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: microphone/%q", ErrProviderNotRegistered, cfg.Provider)
	}
	return factory(cfg)
}

// Names returns the sorted provider names registered for kind ("voice" or
// "microphone").
func (r *Registry) Names(kind string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	switch kind {
	case "voice":
		for n := range r.voice {
			names = append(names, n)
		}
	case "microphone":
		for n := range r.microphone {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names
}
