package log

import "gopkg.in/Sirupsen/logrus.v0"

// entry returns a logrus entry tagged with the module name and the fields of
// the registered log contexts.
func (mod Module) entry() *logrus.Entry {
	e := logrus.StandardLogger().WithField("_mod", modNames[mod])

	var z EntryZ
	for _, c := range contexts {
		c.AddLogContext(&z)
	}
	if z.zfidx == 0 {
		return e
	}
	fields := make(logrus.Fields, z.zfidx)
	for i := range z.zfbuf[:z.zfidx] {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}
	return e.WithFields(fields)
}
