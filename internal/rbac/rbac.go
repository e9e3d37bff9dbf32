package rbac

// Role constants
const (
	RoleParticipant = "participant"
	RoleAdmin       = "admin"
)

// Permission constants
const (
	PermCreateChallenge = "create_challenge"
	PermJoinQueue       = "join_queue"
	PermReserveStake    = "reserve_stake"
	PermUploadProof     = "upload_proof"
	PermSubmitVote      = "submit_vote"
	PermOpenDispute     = "open_dispute"
	PermResolveDispute  = "resolve_dispute"
	PermDepositFunds    = "deposit_funds"
	PermFundBonus       = "fund_bonus"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleParticipant: {
		PermCreateChallenge, PermJoinQueue, PermReserveStake,
		PermUploadProof, PermSubmitVote, PermOpenDispute,
	},
	RoleAdmin: {
		PermCreateChallenge, PermJoinQueue, PermReserveStake,
		PermUploadProof, PermSubmitVote, PermOpenDispute,
		// Admin-only: financial and dispute authority
		PermResolveDispute, PermDepositFunds, PermFundBonus,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsFinancialOperation checks if permission moves money outside of the
// normal stake flow (admin-only).
func IsFinancialOperation(permission string) bool {
	return permission == PermResolveDispute || permission == PermDepositFunds || permission == PermFundBonus
}
