package verify

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/certen/safe-evidence-verifier/pkg/verrors"
)

func errPlain(message string) error {
	return verrors.New(verrors.CodeMPTAddressMismatch, message)
}

func errAddressBindingMismatch(proven, declared common.Address) error {
	return verrors.Newf(verrors.CodeMPTAddressMismatch, "account proof address %s does not match declared safeAddress %s", proven, declared)
}

func errSlotNotProven(slotKey []byte) error {
	return verrors.Newf(verrors.CodeMPTMalformedProof, "storage slot %x was not included in a verified proof", slotKey)
}

func errScalarMismatch(got, want *big.Int) error {
	return verrors.Newf(verrors.CodeMPTAddressMismatch, "proven value %s does not match claimed value %s", got, want)
}

func errAddressMismatch(got, want common.Address) error {
	return verrors.Newf(verrors.CodeMPTAddressMismatch, "proven address %s does not match claimed address %s", got, want)
}
