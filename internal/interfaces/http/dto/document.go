package dto

// CancelDocumentRequest cancels a document with a mandatory reason
type CancelDocumentRequest struct {
	CompanyID string `json:"company_id" binding:"required,uuid"`
	Reason    string `json:"reason" binding:"required,min=1,max=500"`
}
