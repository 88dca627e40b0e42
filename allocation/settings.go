// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package allocation

import (
	"github.com/blinklabs-io/gavel/chain"
)

// SetSupervisor grants or removes the right of supervisor to revoke claims of
// account. A nil account applies to every account
func (l *Ledger) SetSupervisor(ctx *chain.Context, account, supervisor chain.Principal, enabled bool) error {
	return ctx.Invoke(l.address, func(frame *chain.Context) error {
		if err := l.authorize(frame); err != nil {
			return err
		}
		l.setSupervisor(frame.Journal(), account, supervisor, enabled)
		frame.Emit(
			"SupervisorChanged",
			chain.Indexed("account", account),
			chain.Indexed("supervisor", supervisor),
			chain.Data("enabled", enabled),
		)
		return nil
	})
}

func (l *Ledger) setSupervisor(j *chain.Journal, account, supervisor chain.Principal, enabled bool) {
	set, ok := l.supervisors[account]
	if !ok {
		set = make(map[chain.Principal]bool)
		chain.StoreMap(j, l.supervisors, account, set)
	}
	if enabled {
		chain.StoreMap(j, set, supervisor, true)
	} else {
		chain.DeleteMap(j, set, supervisor)
	}
}

// IsSupervisor reports whether supervisor was set for exactly account
func (l *Ledger) IsSupervisor(account, supervisor chain.Principal) bool {
	return l.supervisors[account][supervisor]
}

// IsSupervisorFor reports whether supervisor may revoke claims of account,
// directly or as a global supervisor
func (l *Ledger) IsSupervisorFor(account, supervisor chain.Principal) bool {
	return l.IsSupervisor(account, supervisor) || l.IsSupervisor(chain.NilPrincipal, supervisor)
}

// SetLockDuration overrides the lock duration of claims by account on token.
// A nil account or token applies to all of them. Zero removes the override,
// LockInstant allows immediate enactment and LockForever blocks it
func (l *Ledger) SetLockDuration(ctx *chain.Context, account, token chain.Principal, duration uint64) error {
	return ctx.Invoke(l.address, func(frame *chain.Context) error {
		if err := l.authorize(frame); err != nil {
			return err
		}
		k := key{account, token}
		j := frame.Journal()
		if duration == lockUnset {
			chain.DeleteMap(j, l.lockDurations, k)
		} else {
			chain.StoreMap(j, l.lockDurations, k, duration)
		}
		frame.Emit(
			"LockDurationChanged",
			chain.Indexed("account", account),
			chain.Indexed("token", token),
			chain.Data("duration", duration),
		)
		return nil
	})
}

// LockDurationRaw returns the override stored for exactly account and token,
// zero when unset
func (l *Ledger) LockDurationRaw(account, token chain.Principal) uint64 {
	return l.lockDurations[key{account, token}]
}

// LockDuration resolves the lock duration of claims by account on token. The
// most specific override wins, then the constructor default. LockInstant
// resolves to zero in both
func (l *Ledger) LockDuration(account, token chain.Principal) uint64 {
	for _, k := range []key{
		{account, token},
		{account, chain.NilPrincipal},
		{chain.NilPrincipal, token},
		{chain.NilPrincipal, chain.NilPrincipal},
	} {
		raw, ok := l.lockDurations[k]
		if !ok {
			continue
		}
		return resolveLockDuration(raw)
	}
	return resolveLockDuration(l.defaultLockDuration)
}

func resolveLockDuration(raw uint64) uint64 {
	if raw == LockInstant {
		return 0
	}
	return raw
}
