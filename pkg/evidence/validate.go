package evidence

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/certen/safe-evidence-verifier/pkg/verrors"
)

var (
	addressRE = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	hash32RE  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// collector accumulates schema errors so Parse can report every problem
// in one pass instead of failing on the first (spec §4.1: "returns ...
// an ordered list of human-readable errors").
type collector struct {
	errs verrors.List
}

func (c *collector) add(field string, err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(*verrors.Error); ok {
		c.errs = append(c.errs, ve.WithField(field))
		return
	}
	c.errs = append(c.errs, verrors.New(verrors.CodeSchemaError, err.Error()).WithField(field))
}

func (c *collector) fail(field, format string, args ...interface{}) {
	c.errs = append(c.errs, verrors.Newf(verrors.CodeSchemaError, format, args...).WithField(field))
}

// Parse validates raw JSON bytes and returns a structured Evidence, or a
// non-empty verrors.List describing every violation found (spec §4.1).
func Parse(raw []byte) (*Evidence, verrors.List) {
	var w wireEvidence
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return nil, verrors.List{verrors.New(verrors.CodeInvalidJSON, err.Error())}
	}

	c := &collector{}
	ev := &Evidence{}

	switch Version(w.Version) {
	case Version1_0, Version1_1, Version1_2:
		ev.Version = Version(w.Version)
	default:
		c.fail("version", "version must be one of 1.0, 1.1, 1.2, got %q", w.Version)
	}

	if w.Version == string(Version1_0) {
		if w.OnchainPolicyProof != nil || w.Simulation != nil || w.ConsensusProof != nil || len(w.ExportContract) > 0 {
			c.fail("version", "version 1.0 packages must not declare onchainPolicyProof/simulation/consensusProof/exportContract")
		}
	}

	if chainID, err := w.ChainID.Int64(); err != nil || chainID < 0 {
		c.fail("chainId", "chainId must be a non-negative integer")
	} else {
		ev.ChainID = uint64(chainID)
	}

	ev.SafeAddress = c.parseAddress("safeAddress", w.SafeAddress)
	ev.SafeTxHash = c.parseHash32("safeTxHash", w.SafeTxHash)

	if w.EthereumTxHash != nil {
		h := c.parseHash32("ethereumTxHash", *w.EthereumTxHash)
		ev.EthereumTxHash = &h
	}

	if confs, err := w.ConfirmationsRequired.Int64(); err != nil || confs < 0 {
		c.fail("confirmationsRequired", "confirmationsRequired must be a non-negative integer")
	} else {
		ev.ConfirmationsRequired = uint64(confs)
	}

	ev.Confirmations = make([]Confirmation, 0, len(w.Confirmations))
	for i, wc := range w.Confirmations {
		field := fmt.Sprintf("confirmations[%d]", i)
		owner := c.parseAddress(field+".owner", wc.Owner)
		sig, err := hexDecode(wc.Signature)
		c.add(field+".signature", err)
		submitted, err := time.Parse(time.RFC3339, wc.SubmissionDate)
		if err != nil {
			c.fail(field+".submissionDate", "submissionDate must be RFC3339, got %q", wc.SubmissionDate)
		}
		ev.Confirmations = append(ev.Confirmations, Confirmation{
			Owner:          owner,
			Signature:      sig,
			SubmissionDate: submitted,
		})
	}

	ev.Transaction = c.parseTransaction(w.Transaction)
	ev.DataDecoded = c.parseDecodedCall("dataDecoded", w.DataDecoded)
	ev.Sources = Sources{SafeAPIURL: w.Sources.SafeAPIURL, TransactionURL: w.Sources.TransactionURL}

	if w.PackagedAt != "" {
		if t, err := time.Parse(time.RFC3339, w.PackagedAt); err == nil {
			ev.PackagedAt = t
		} else {
			c.fail("packagedAt", "packagedAt must be RFC3339, got %q", w.PackagedAt)
		}
	}

	if w.OnchainPolicyProof != nil {
		ev.OnchainPolicyProof = c.parsePolicyProof(w.OnchainPolicyProof)
	}
	if w.Simulation != nil {
		ev.Simulation = c.parseSimulation(w.Simulation)
	}
	if w.ConsensusProof != nil {
		ev.ConsensusProof = c.parseConsensusProof(w.ConsensusProof)
	}
	if len(w.ExportContract) > 0 {
		ev.ExportContract = []byte(w.ExportContract)
	}

	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return ev, nil
}

func (c *collector) parseAddress(field, s string) common.Address {
	if !addressRE.MatchString(s) {
		c.fail(field, "%q is not a 20-byte 0x-address", s)
		return common.Address{}
	}
	return common.HexToAddress(s)
}

func (c *collector) parseHash32(field, s string) common.Hash {
	if !hash32RE.MatchString(s) {
		c.fail(field, "%q is not a 32-byte 0x-hash", s)
		return common.Hash{}
	}
	return common.HexToHash(s)
}

func hexDecode(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, fmt.Errorf("missing 0x prefix")
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

func (c *collector) parseQuantity(field, s string, allowDecimal bool) Quantity {
	q, err := ParseQuantity(s, allowDecimal)
	if err != nil {
		c.fail(field, "%v", err)
		return ZeroQuantity()
	}
	return q
}

func (c *collector) parseTransaction(w wireTransaction) Transaction {
	t := Transaction{}
	t.To = c.parseAddress("transaction.to", w.To)
	t.Value = c.parseQuantity("transaction.value", w.Value, true)
	data, err := hexDecode(w.Data)
	c.add("transaction.data", err)
	t.Data = data
	if w.Operation != 0 && w.Operation != 1 {
		c.fail("transaction.operation", "operation must be 0 or 1, got %d", w.Operation)
	}
	t.Operation = Operation(w.Operation)
	t.SafeTxGas = c.parseQuantity("transaction.safeTxGas", w.SafeTxGas, true)
	t.BaseGas = c.parseQuantity("transaction.baseGas", w.BaseGas, true)
	t.GasPrice = c.parseQuantity("transaction.gasPrice", w.GasPrice, true)
	t.GasToken = c.parseAddress("transaction.gasToken", w.GasToken)
	t.RefundReceiver = c.parseAddress("transaction.refundReceiver", w.RefundReceiver)
	t.Nonce = c.parseQuantity("transaction.nonce", w.Nonce, true)
	return t
}

func (c *collector) parseDecodedCall(field string, w *wireDecodedCall) *DecodedCall {
	if w == nil {
		return nil
	}
	dc := &DecodedCall{Method: w.Method}
	for i, p := range w.Parameters {
		dc.Params = append(dc.Params, CallParam{Name: p.Name, Type: p.Type, Value: p.Value})
		if p.Name == "transactions" && len(p.ValueDecoded) > 0 {
			for j, inner := range p.ValueDecoded {
				dc.ValueDecoded = append(dc.ValueDecoded, c.parseInnerTx(fmt.Sprintf("%s.parameters[%d].valueDecoded[%d]", field, i, j), inner))
			}
		}
	}
	return dc
}

func (c *collector) parseInnerTx(field string, w wireDecodedInnerTx) DecodedInnerTx {
	inner := DecodedInnerTx{}
	if w.To != nil {
		addr := c.parseAddress(field+".to", *w.To)
		inner.To = &addr
	}
	if w.Value != nil {
		q := c.parseQuantity(field+".value", *w.Value, true)
		inner.Value = &q
	}
	if w.Operation != nil {
		if *w.Operation != 0 && *w.Operation != 1 {
			c.fail(field+".operation", "operation must be 0 or 1, got %d", *w.Operation)
		}
		op := Operation(*w.Operation)
		inner.Operation = &op
	}
	if w.Data != nil {
		raw, err := hexDecode(*w.Data)
		c.add(field+".data", err)
		inner.RawData = raw
	}
	if w.DataDecoded != nil {
		inner.Method = &w.DataDecoded.Method
		for _, p := range w.DataDecoded.Parameters {
			inner.Params = append(inner.Params, CallParam{Name: p.Name, Type: p.Type, Value: p.Value})
		}
	}
	return inner
}

// parseStorageKey normalizes a storage-proof key to 32 bytes, accepting
// both compact quantity form ("0x4") and canonical 32-byte form
// (spec §4.4, "Key normalization").
func parseStorageKey(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, fmt.Errorf("missing 0x prefix")
	}
	body := s[2:]
	if body == "" {
		return nil, fmt.Errorf("empty hex body")
	}
	if len(body)%2 == 1 {
		body = "0" + body
	}
	b, err := hex.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) > 32 {
		return nil, fmt.Errorf("storage key longer than 32 bytes")
	}
	return leftPad32(b), nil
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// normalizeValue re-normalizes a storage value to 32-byte zero-padded
// form (spec §4.4, "Value normalization"): 0x, 0x0, 0x00 all become 32
// zero bytes.
func normalizeValue(s string) ([]byte, error) {
	if s == "" {
		return make([]byte, 32), nil
	}
	if !strings.HasPrefix(s, "0x") {
		return nil, fmt.Errorf("missing 0x prefix")
	}
	body := strings.TrimLeft(s[2:], "0")
	if body == "" {
		return make([]byte, 32), nil
	}
	if len(body)%2 == 1 {
		body = "0" + body
	}
	b, err := hex.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) > 32 {
		return nil, fmt.Errorf("value longer than 32 bytes")
	}
	return leftPad32(b), nil
}

func (c *collector) parseAccountProof(field string, w wireAccountProof) AccountProof {
	ap := AccountProof{}
	ap.Address = c.parseAddress(field+".address", w.Address)

	if w.Balance != "" {
		bal, ok := new(big.Int).SetString(strings.TrimPrefix(w.Balance, "0x"), hexOrDecBase(w.Balance))
		if !ok {
			c.fail(field+".balance", "invalid balance %q", w.Balance)
		} else {
			ap.Balance = bal
		}
	} else {
		ap.Balance = big.NewInt(0)
	}

	if n, err := strconv.ParseUint(strings.TrimPrefix(w.Nonce, "0x"), hexOrDecBase(w.Nonce), 64); err == nil {
		ap.Nonce = n
	} else if w.Nonce != "" {
		c.fail(field+".nonce", "invalid nonce %q", w.Nonce)
	}

	ap.CodeHash = c.parseHash32(field+".codeHash", w.CodeHash)
	ap.StorageHash = c.parseHash32(field+".storageHash", w.StorageHash)

	for i, n := range w.Proof {
		b, err := hexDecode(n)
		if err != nil {
			c.fail(fmt.Sprintf("%s.proof[%d]", field, i), "%v", err)
			continue
		}
		ap.Nodes = append(ap.Nodes, b)
	}

	for i, sp := range w.StorageProof {
		spField := fmt.Sprintf("%s.storageProof[%d]", field, i)
		key, err := parseStorageKey(sp.Key)
		c.add(spField+".key", err)
		value, err := normalizeValue(sp.Value)
		c.add(spField+".value", err)
		var nodes [][]byte
		for j, n := range sp.Proof {
			b, err := hexDecode(n)
			if err != nil {
				c.fail(fmt.Sprintf("%s.proof[%d]", spField, j), "%v", err)
				continue
			}
			nodes = append(nodes, b)
		}
		ap.StorageProof = append(ap.StorageProof, StorageProof{Key: key, Value: value, Nodes: nodes})
	}

	return ap
}

func hexOrDecBase(s string) int {
	if strings.HasPrefix(s, "0x") {
		return 16
	}
	return 10
}

func (c *collector) parsePolicyProof(w *wirePolicyProof) *OnchainPolicyProof {
	pp := &OnchainPolicyProof{}
	if bn, err := w.BlockNumber.Int64(); err == nil && bn >= 0 {
		pp.BlockNumber = uint64(bn)
	} else {
		c.fail("onchainPolicyProof.blockNumber", "blockNumber must be a non-negative integer")
	}
	pp.StateRoot = c.parseHash32("onchainPolicyProof.stateRoot", w.StateRoot)
	pp.AccountProof = c.parseAccountProof("onchainPolicyProof.accountProof", w.AccountProof)

	dp := DecodedPolicy{}
	for i, o := range w.DecodedPolicy.Owners {
		dp.Owners = append(dp.Owners, c.parseAddress(fmt.Sprintf("onchainPolicyProof.decodedPolicy.owners[%d]", i), o))
	}
	if th, err := w.DecodedPolicy.Threshold.Int64(); err == nil && th >= 0 {
		dp.Threshold = uint64(th)
	} else {
		c.fail("onchainPolicyProof.decodedPolicy.threshold", "threshold must be a non-negative integer")
	}
	if n, err := w.DecodedPolicy.Nonce.Int64(); err == nil && n >= 0 {
		dp.Nonce = uint64(n)
	} else {
		c.fail("onchainPolicyProof.decodedPolicy.nonce", "nonce must be a non-negative integer")
	}
	for i, m := range w.DecodedPolicy.Modules {
		dp.Modules = append(dp.Modules, c.parseAddress(fmt.Sprintf("onchainPolicyProof.decodedPolicy.modules[%d]", i), m))
	}
	dp.Guard = c.parseAddress("onchainPolicyProof.decodedPolicy.guard", w.DecodedPolicy.Guard)
	dp.FallbackHandler = c.parseAddress("onchainPolicyProof.decodedPolicy.fallbackHandler", w.DecodedPolicy.FallbackHandler)
	dp.Singleton = c.parseAddress("onchainPolicyProof.decodedPolicy.singleton", w.DecodedPolicy.Singleton)
	pp.DecodedPolicy = dp

	return pp
}

func (c *collector) parseSimulation(w *wireSimulation) *Simulation {
	s := &Simulation{Success: w.Success}
	if w.ReturnData != nil {
		rd, err := hexDecode(*w.ReturnData)
		c.add("simulation.returnData", err)
		s.ReturnData = rd
		s.HasReturnData = true
	}
	// gasUsed must be a hex quantity specifically, never decimal
	// (spec §4.6: "not a decimal, not uppercase-0X").
	s.GasUsed = c.parseQuantity("simulation.gasUsed", w.GasUsed, false)

	for i, l := range w.Logs {
		lField := fmt.Sprintf("simulation.logs[%d]", i)
		entry := LogEntry{Address: c.parseAddress(lField+".address", l.Address)}
		if len(l.Topics) > 4 {
			c.fail(lField+".topics", "at most 4 topics allowed, got %d", len(l.Topics))
		}
		for j, t := range l.Topics {
			entry.Topics = append(entry.Topics, c.parseHash32(fmt.Sprintf("%s.topics[%d]", lField, j), t))
		}
		data, err := hexDecode(l.Data)
		c.add(lField+".data", err)
		entry.Data = data
		s.Logs = append(s.Logs, entry)
	}

	if len(w.StateDiffs) > 0 {
		s.HasStateDiffs = true
		for i, sd := range w.StateDiffs {
			sdField := fmt.Sprintf("simulation.stateDiffs[%d]", i)
			s.StateDiffs = append(s.StateDiffs, StateDiffEntry{
				Address: c.parseAddress(sdField+".address", sd.Address),
				Key:     c.parseHash32(sdField+".key", sd.Key),
				Before:  c.parseHash32(sdField+".before", sd.Before),
				After:   c.parseHash32(sdField+".after", sd.After),
			})
		}
	}

	if bn, err := w.BlockNumber.Int64(); err == nil && bn >= 0 {
		s.BlockNumber = uint64(bn)
	} else {
		c.fail("simulation.blockNumber", "blockNumber must be a non-negative integer")
	}

	if w.BlockTimestamp != nil {
		if t, err := time.Parse(time.RFC3339, *w.BlockTimestamp); err == nil {
			s.BlockTimestamp = &t
		} else {
			c.fail("simulation.blockTimestamp", "blockTimestamp must be RFC3339, got %q", *w.BlockTimestamp)
		}
	}

	return s
}

func (c *collector) parseConsensusProof(w *wireConsensusProof) *ConsensusProof {
	cp := &ConsensusProof{}
	switch ConsensusMode(w.Mode) {
	case ConsensusModeBeacon, ConsensusModeOpstack, ConsensusModeLinea:
		cp.Mode = ConsensusMode(w.Mode)
	default:
		c.fail("consensusProof.mode", "mode must be one of beacon/opstack/linea, got %q", w.Mode)
	}
	cp.StateRoot = c.parseHash32("consensusProof.stateRoot", w.StateRoot)
	if bn, err := w.BlockNumber.Int64(); err == nil && bn >= 0 {
		cp.BlockNumber = uint64(bn)
	} else {
		c.fail("consensusProof.blockNumber", "blockNumber must be a non-negative integer")
	}

	if cp.Mode == ConsensusModeBeacon {
		cp.Bootstrap = w.Bootstrap
		cp.Updates = w.Updates
		cp.FinalityUpdate = w.FinalityUpdate
		if w.CheckpointRoot != "" {
			cp.CheckpointRoot = c.parseHash32("consensusProof.checkpointRoot", w.CheckpointRoot)
		}
	} else {
		if w.ProofPayload == "" {
			c.fail("consensusProof.proofPayload", "proofPayload is required when mode is not beacon")
		}
		cp.ProofPayload = w.ProofPayload
	}

	return cp
}
