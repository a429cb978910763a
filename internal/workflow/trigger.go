package workflow

// Trigger represents an event that can cause a state transition.
type Trigger string

const (
	TriggerIngest             Trigger = "INGEST"
	TriggerNonTicket          Trigger = "NON_TICKET"
	TriggerNeedOrderInfo      Trigger = "NEED_ORDER_INFO"
	TriggerValidated          Trigger = "VALIDATED"
	TriggerTierAssigned       Trigger = "TIER_ASSIGNED"
	TriggerTierEscalate       Trigger = "TIER_ESCALATE"
	TriggerApprove            Trigger = "APPROVE"
	TriggerReject             Trigger = "REJECT"
	TriggerInquiry            Trigger = "INQUIRY"
	TriggerIssueConfirmed     Trigger = "ISSUE_CONFIRMED"
	TriggerProblemsFound      Trigger = "PROBLEMS_FOUND"
	TriggerPolicySelected     Trigger = "POLICY_SELECTED"
	TriggerEscalate           Trigger = "ESCALATE"
	TriggerRequestRefund      Trigger = "REQUEST_REFUND_APPROVAL"
	TriggerRequestResend      Trigger = "REQUEST_RESEND_APPROVAL"
	TriggerNeedClarification  Trigger = "NEED_CLARIFICATION"
	TriggerResumeValidation   Trigger = "RESUME_VALIDATION"
	TriggerResumeResolution   Trigger = "RESUME_RESOLUTION"
	TriggerResolutionReached  Trigger = "RESOLUTION_REACHED"
	TriggerEmailComposed      Trigger = "EMAIL_COMPOSED"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
