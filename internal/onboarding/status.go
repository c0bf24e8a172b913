package onboarding

// DoctorStatus is a position in the doctor onboarding workflow.
type DoctorStatus string

const (
	DoctorDraft                DoctorStatus = "draft"
	DoctorSubmitted            DoctorStatus = "submitted"
	DoctorVerificationPending  DoctorStatus = "verification_pending"
	DoctorVerificationApproved DoctorStatus = "verification_approved"
	DoctorVerificationRejected DoctorStatus = "verification_rejected"
	DoctorInterviewScheduled   DoctorStatus = "interview_scheduled"
	DoctorInterviewCompleted   DoctorStatus = "interview_completed"
	DoctorInterviewPassed      DoctorStatus = "interview_passed"
	DoctorInterviewFailed      DoctorStatus = "interview_failed"
	DoctorTrainingPending      DoctorStatus = "training_pending"
	DoctorTrainingInProgress   DoctorStatus = "training_in_progress"
	DoctorTrainingCompleted    DoctorStatus = "training_completed"
	DoctorActivationPending    DoctorStatus = "activation_pending"
	DoctorActivated            DoctorStatus = "activated"
	DoctorRejected             DoctorStatus = "rejected"
	DoctorSuspended            DoctorStatus = "suspended"
)

// ClinicStatus is a position in the clinic partner onboarding workflow.
type ClinicStatus string

const (
	ClinicDraft                     ClinicStatus = "draft"
	ClinicSubmitted                 ClinicStatus = "submitted"
	ClinicDocumentationPending      ClinicStatus = "documentation_pending"
	ClinicDocumentationApproved     ClinicStatus = "documentation_approved"
	ClinicDocumentationRejected     ClinicStatus = "documentation_rejected"
	ClinicSiteVerificationPending   ClinicStatus = "site_verification_pending"
	ClinicSiteVerificationScheduled ClinicStatus = "site_verification_scheduled"
	ClinicSiteVerificationCompleted ClinicStatus = "site_verification_completed"
	ClinicSiteVerificationPassed    ClinicStatus = "site_verification_passed"
	ClinicSiteVerificationFailed    ClinicStatus = "site_verification_failed"
	ClinicContractPending           ClinicStatus = "contract_pending"
	ClinicContractSigned            ClinicStatus = "contract_signed"
	ClinicSetupPending              ClinicStatus = "setup_pending"
	ClinicSetupCompleted            ClinicStatus = "setup_completed"
	ClinicTrainingPending           ClinicStatus = "training_pending"
	ClinicTrainingInProgress        ClinicStatus = "training_in_progress"
	ClinicTrainingCompleted         ClinicStatus = "training_completed"
	ClinicActivationPending         ClinicStatus = "activation_pending"
	ClinicActivated                 ClinicStatus = "activated"
	ClinicRejected                  ClinicStatus = "rejected"
	ClinicSuspended                 ClinicStatus = "suspended"
)

const (
	WorkflowDoctor = "doctor"
	WorkflowClinic = "clinic"
)

// DoctorGraph is the doctor onboarding stage graph.
var DoctorGraph = NewGraph(GraphDef[DoctorStatus]{
	Workflow: WorkflowDoctor,
	Initial:  DoctorDraft,
	Order: []DoctorStatus{
		DoctorDraft, DoctorSubmitted, DoctorVerificationPending, DoctorVerificationApproved,
		DoctorVerificationRejected, DoctorInterviewScheduled, DoctorInterviewCompleted, DoctorInterviewPassed,
		DoctorInterviewFailed, DoctorTrainingPending, DoctorTrainingInProgress, DoctorTrainingCompleted,
		DoctorActivationPending, DoctorActivated, DoctorRejected, DoctorSuspended,
	},
	Edges: map[DoctorStatus][]DoctorStatus{
		DoctorDraft:                {DoctorSubmitted},
		DoctorSubmitted:            {DoctorVerificationPending},
		DoctorVerificationPending:  {DoctorVerificationPending, DoctorVerificationApproved, DoctorVerificationRejected},
		DoctorVerificationApproved: {DoctorInterviewScheduled},
		DoctorInterviewScheduled:   {DoctorInterviewCompleted, DoctorInterviewPassed, DoctorInterviewFailed},
		DoctorInterviewCompleted:   {DoctorInterviewPassed, DoctorInterviewFailed},
		DoctorInterviewPassed:      {DoctorTrainingPending},
		DoctorTrainingPending:      {DoctorTrainingInProgress},
		DoctorTrainingInProgress:   {DoctorTrainingCompleted},
		DoctorTrainingCompleted:    {DoctorActivationPending},
		DoctorActivationPending:    {DoctorActivated},
		DoctorActivated:            {DoctorSuspended},
	},
	Auto: map[DoctorStatus]DoctorStatus{
		DoctorInterviewPassed:   DoctorTrainingPending,
		DoctorTrainingCompleted: DoctorActivationPending,
	},
	Terminal: []DoctorStatus{DoctorVerificationRejected, DoctorInterviewFailed, DoctorActivated, DoctorRejected, DoctorSuspended},
	Reject:   DoctorRejected,
	Stages: map[DoctorStatus]StageInfo{
		DoctorDraft:                {1, "Application", "Complete your application"},
		DoctorSubmitted:            {1, "Application", "Application under review"},
		DoctorVerificationPending:  {2, "Verification", "Credentials being verified"},
		DoctorVerificationApproved: {2, "Verification", "Credentials verified"},
		DoctorVerificationRejected: {2, "Verification", "Verification failed"},
		DoctorInterviewScheduled:   {3, "Interview", "Interview scheduled"},
		DoctorInterviewCompleted:   {3, "Interview", "Interview under review"},
		DoctorInterviewPassed:      {3, "Interview", "Interview passed"},
		DoctorInterviewFailed:      {3, "Interview", "Interview not passed"},
		DoctorTrainingPending:      {4, "Training", "Training not started"},
		DoctorTrainingInProgress:   {4, "Training", "Training in progress"},
		DoctorTrainingCompleted:    {4, "Training", "Training completed"},
		DoctorActivationPending:    {5, "Activation", "Awaiting final approval"},
		DoctorActivated:            {6, "Active", "Profile is live!"},
		DoctorSuspended:            {0, "Suspended", "Account suspended"},
		DoctorRejected:             {0, "Rejected", "Application rejected"},
	},
	Required: []string{"full_name", "email", "phone", "specialization", "qualification", "license_number"},
})

// ClinicGraph is the clinic onboarding stage graph.
var ClinicGraph = NewGraph(GraphDef[ClinicStatus]{
	Workflow: WorkflowClinic,
	Initial:  ClinicDraft,
	Order: []ClinicStatus{
		ClinicDraft, ClinicSubmitted, ClinicDocumentationPending, ClinicDocumentationApproved,
		ClinicDocumentationRejected, ClinicSiteVerificationPending, ClinicSiteVerificationScheduled,
		ClinicSiteVerificationCompleted, ClinicSiteVerificationPassed, ClinicSiteVerificationFailed,
		ClinicContractPending, ClinicContractSigned, ClinicSetupPending, ClinicSetupCompleted,
		ClinicTrainingPending, ClinicTrainingInProgress, ClinicTrainingCompleted, ClinicActivationPending,
		ClinicActivated, ClinicRejected, ClinicSuspended,
	},
	Edges: map[ClinicStatus][]ClinicStatus{
		ClinicDraft:                     {ClinicSubmitted},
		ClinicSubmitted:                 {ClinicDocumentationPending, ClinicDocumentationApproved, ClinicDocumentationRejected},
		ClinicDocumentationPending:      {ClinicDocumentationPending, ClinicDocumentationApproved, ClinicDocumentationRejected},
		ClinicDocumentationApproved:     {ClinicSiteVerificationPending},
		ClinicSiteVerificationPending:   {ClinicSiteVerificationScheduled},
		ClinicSiteVerificationScheduled: {ClinicSiteVerificationCompleted, ClinicSiteVerificationPassed, ClinicSiteVerificationFailed},
		ClinicSiteVerificationCompleted: {ClinicSiteVerificationPassed, ClinicSiteVerificationFailed},
		ClinicSiteVerificationPassed:    {ClinicContractPending},
		ClinicContractPending:           {ClinicContractSigned},
		ClinicContractSigned:            {ClinicSetupPending},
		ClinicSetupPending:              {ClinicSetupCompleted},
		ClinicSetupCompleted:            {ClinicTrainingPending},
		ClinicTrainingPending:           {ClinicTrainingInProgress},
		ClinicTrainingInProgress:        {ClinicTrainingCompleted},
		ClinicTrainingCompleted:         {ClinicActivationPending},
		ClinicActivationPending:         {ClinicActivationPending, ClinicActivated},
		ClinicActivated:                 {ClinicSuspended},
	},
	Auto: map[ClinicStatus]ClinicStatus{
		ClinicDocumentationApproved:  ClinicSiteVerificationPending,
		ClinicSiteVerificationPassed: ClinicContractPending,
		ClinicContractSigned:         ClinicSetupPending,
		ClinicSetupCompleted:         ClinicTrainingPending,
		ClinicTrainingCompleted:      ClinicActivationPending,
	},
	Terminal: []ClinicStatus{ClinicDocumentationRejected, ClinicSiteVerificationFailed, ClinicActivated, ClinicRejected, ClinicSuspended},
	Reject:   ClinicRejected,
	Stages: map[ClinicStatus]StageInfo{
		ClinicDraft:                     {1, "Application", "Complete your application"},
		ClinicSubmitted:                 {1, "Application", "Application under review"},
		ClinicDocumentationPending:      {2, "Documentation", "Documents being verified"},
		ClinicDocumentationApproved:     {2, "Documentation", "Documents verified"},
		ClinicDocumentationRejected:     {2, "Documentation", "Documents rejected"},
		ClinicSiteVerificationPending:   {3, "Site Verification", "Awaiting inspection scheduling"},
		ClinicSiteVerificationScheduled: {3, "Site Verification", "Inspection scheduled"},
		ClinicSiteVerificationCompleted: {3, "Site Verification", "Inspection under review"},
		ClinicSiteVerificationPassed:    {3, "Site Verification", "Inspection passed"},
		ClinicSiteVerificationFailed:    {3, "Site Verification", "Inspection failed"},
		ClinicContractPending:           {4, "Contract", "Awaiting contract signing"},
		ClinicContractSigned:            {4, "Contract", "Contract signed"},
		ClinicSetupPending:              {5, "Setup", "Platform setup in progress"},
		ClinicSetupCompleted:            {5, "Setup", "Platform setup completed"},
		ClinicTrainingPending:           {6, "Training", "Training not started"},
		ClinicTrainingInProgress:        {6, "Training", "Training in progress"},
		ClinicTrainingCompleted:         {6, "Training", "Training completed"},
		ClinicActivationPending:         {7, "Activation", "Awaiting final approval"},
		ClinicActivated:                 {8, "Active", "Clinic is live!"},
		ClinicSuspended:                 {0, "Suspended", "Account suspended"},
		ClinicRejected:                  {0, "Rejected", "Application rejected"},
	},
	Required: []string{"clinic_name", "owner_name", "email", "phone", "address", "city", "state"},
})
