package pin

import "time"

// NeedsUpgrade reports whether the credential should be re-hashed: either it
// was hashed under a pepper key other than the current Active one, or its cost
// factor is below the target.
func NeedsUpgrade(cred Credential, activeAlias string, targetCost int) bool {
	return cred.PepperKeyAlias != activeAlias || cred.Cost < targetCost
}

// Upgrade re-hashes a just-verified PIN under the Active pepper and target
// cost. The raw PIN is first re-checked against the stored hash using the
// credential's own pepper; if that re-check fails the upgrade is silently
// skipped — this is a best-effort migration, not a correctness gate for login.
//
// Returns the new snapshot and true when a re-hash happened.
func Upgrade(
	cred Credential,
	ownPepper []byte,
	rawPIN string,
	activeAlias string,
	activePepper []byte,
	targetCost int,
	now time.Time,
) (Credential, bool, error) {
	if !NeedsUpgrade(cred, activeAlias, targetCost) {
		return cred, false, nil
	}

	ok, err := VerifyPIN(ownPepper, rawPIN, cred.Hash)
	if err != nil || !ok {
		return cred, false, nil
	}

	newHash, err := HashPIN(activePepper, rawPIN, targetCost)
	if err != nil {
		return cred, false, err
	}

	cred.Hash = newHash
	cred.PepperKeyAlias = activeAlias
	cred.Cost = targetCost
	cred.LastChangedAt = now
	return cred, true, nil
}
