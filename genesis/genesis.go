// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis seeds a fresh ledger state from a YAML config: governance
// params, role addresses and initial account balances.
package genesis

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin"
	"github.com/provernet/bastion/state"
)

// Amount is a base-unit token amount, encoded in YAML as a decimal string.
type Amount big.Int

// Big returns the amount as a big int, never nil.
func (a *Amount) Big() *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return (*big.Int)(a)
}

func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return errors.Errorf("malformed amount %q", s)
	}
	(*big.Int)(a).Set(v)
	return nil
}

func (a *Amount) MarshalYAML() (interface{}, error) {
	return a.Big().String(), nil
}

// Params are the initial governance values. Zero values fall back to the
// built-in defaults.
type Params struct {
	UnbondDelay        uint32  `yaml:"unbondDelay"`
	MinSelfStake       *Amount `yaml:"minSelfStake"`
	MaxSlashBps        uint32  `yaml:"maxSlashBps"`
	MinWithdrawGranule *Amount `yaml:"minWithdrawGranule"`
	MaxPendingRequests uint32  `yaml:"maxPendingRequests"`
}

// Roles are the privileged addresses.
type Roles struct {
	Executor     bastion.Address `yaml:"executor"`
	Slasher      bastion.Address `yaml:"slasher"`
	RewardSource bastion.Address `yaml:"rewardSource"`
}

// Account is one initial balance.
type Account struct {
	Address bastion.Address `yaml:"address"`
	Balance *Amount         `yaml:"balance"`
}

// Config is the genesis config.
type Config struct {
	Params   Params    `yaml:"params"`
	Roles    Roles     `yaml:"roles"`
	Accounts []Account `yaml:"accounts"`
}

// Load reads a genesis config from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read genesis config")
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, "failed to parse genesis config")
	}
	return &config, nil
}

// Applied tests whether genesis has already been applied to the state.
func Applied(st *state.State) (bool, error) {
	delay, err := builtin.Params.WithState(st).Get(bastion.KeyUnbondDelay)
	if err != nil {
		return false, err
	}
	return delay.Sign() > 0, nil
}

// Apply writes the config into the state. The caller commits the stage.
func (c *Config) Apply(st *state.State) error {
	ps := builtin.Params.WithState(st)

	set := func(key bastion.Bytes32, value, fallback *big.Int) error {
		if value.Sign() == 0 {
			value = fallback
		}
		return ps.Set(key, value)
	}
	if err := set(bastion.KeyUnbondDelay, big.NewInt(int64(c.Params.UnbondDelay)), bastion.InitialUnbondDelay); err != nil {
		return err
	}
	if err := set(bastion.KeyMinSelfStake, c.Params.MinSelfStake.Big(), bastion.InitialMinSelfStake); err != nil {
		return err
	}
	if err := set(bastion.KeyMaxSlashBps, big.NewInt(int64(c.Params.MaxSlashBps)), bastion.InitialMaxSlashBps); err != nil {
		return err
	}
	if err := set(bastion.KeyMinWithdrawGranule, c.Params.MinWithdrawGranule.Big(), bastion.InitialMinWithdrawGranule); err != nil {
		return err
	}
	if err := set(bastion.KeyMaxPendingRequests, big.NewInt(int64(c.Params.MaxPendingRequests)), bastion.InitialMaxPendingRequests); err != nil {
		return err
	}

	if err := ps.SetAddress(bastion.KeyExecutorAddress, c.Roles.Executor); err != nil {
		return err
	}
	if err := ps.SetAddress(bastion.KeySlasherAddress, c.Roles.Slasher); err != nil {
		return err
	}
	if err := ps.SetAddress(bastion.KeyRewardSourceAddress, c.Roles.RewardSource); err != nil {
		return err
	}

	for _, acc := range c.Accounts {
		if err := st.SetBalance(acc.Address, acc.Balance.Big()); err != nil {
			return err
		}
	}
	return nil
}
