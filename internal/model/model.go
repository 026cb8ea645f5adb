package model

import (
	"database/sql"
	"encoding/gob"
)

func InitHashFunction() {
	// Register types for gob serialization
	gob.Register(sql.NullTime{})
	gob.Register(sql.NullInt64{})
	gob.Register(sql.NullString{})
	gob.Register(MemberID(0))
	gob.Register(ContentID(0))
	gob.Register(ReportID(0))
	gob.Register(ActionID(0))
	gob.Register(SuspensionID(0))
	gob.Register(BanID(0))
	gob.Register(AppealID(0))
	gob.Register(AuditLogID(0))
	gob.Register(ViolationCategory(""))
	gob.Register(SeverityLevel(""))
	gob.Register(ActionType(""))
	gob.Register(ReportStatus(""))
	gob.Register(AppealStatus(""))
	gob.Register(LogType(""))
	gob.Register(ContentKind(""))
}
