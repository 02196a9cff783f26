package alarm

// Embedded zone database so Request.Timezone resolves on hosts without
// /usr/share/zoneinfo (mobile sandboxes, scratch containers).
import _ "time/tzdata"
